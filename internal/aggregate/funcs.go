package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Func computes one scalar from the values reachable through an
// attribute path. Values may be numbers, strings, times or nil.
type Func func(values []interface{}) (interface{}, error)

// Registry maps aggregate function names to implementations. It is an
// explicit value populated at startup; hosts may add their own entries
// before handing it to the engine.
type Registry map[string]Func

// Names returns the sorted registered function names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the standard aggregate functions.
func DefaultRegistry() Registry {
	return Registry{
		"max":    Max,
		"min":    Min,
		"avg":    Avg,
		"sum":    Sum,
		"stddev": StdDev,
		"var":    Variance,
		"count":  Count,
		"dcount": DistinctCount,
	}
}

// Max returns the greatest value, or nil when there is none.
func Max(values []interface{}) (interface{}, error) {
	return extreme(values, 1)
}

// Min returns the smallest value, or nil when there is none.
func Min(values []interface{}) (interface{}, error) {
	return extreme(values, -1)
}

func extreme(values []interface{}, sign int) (interface{}, error) {
	var best interface{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		cmp, err := compare(v, best)
		if err != nil {
			return nil, err
		}
		if cmp*sign > 0 {
			best = v
		}
	}
	return best, nil
}

// Sum returns the numeric sum, or nil when there is no numeric value.
func Sum(values []interface{}) (interface{}, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total, nil
}

// Avg returns the numeric mean, or nil when there is no numeric value.
func Avg(values []interface{}) (interface{}, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums)), nil
}

// Variance returns the population variance, or nil when there is no
// numeric value.
func Variance(values []interface{}) (interface{}, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	mean := 0.0
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	sq := 0.0
	for _, n := range nums {
		sq += (n - mean) * (n - mean)
	}
	return sq / float64(len(nums)), nil
}

// StdDev returns the population standard deviation, or nil when there
// is no numeric value.
func StdDev(values []interface{}) (interface{}, error) {
	v, err := Variance(values)
	if err != nil || v == nil {
		return nil, err
	}
	return math.Sqrt(v.(float64)), nil
}

// Count returns the number of non-nil values.
func Count(values []interface{}) (interface{}, error) {
	n := 0
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n, nil
}

// DistinctCount returns the number of distinct non-nil values.
func DistinctCount(values []interface{}) (interface{}, error) {
	seen := make(map[string]bool)
	for _, v := range values {
		if v != nil {
			seen[fmt.Sprintf("%v", v)] = true
		}
	}
	return len(seen), nil
}

func numbers(values []interface{}) ([]float64, error) {
	var nums []float64
	for _, v := range values {
		if v == nil {
			continue
		}
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("cannot aggregate non-numeric value %v", v)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func compare(a, b interface{}) (int, error) {
	if an, ok := toFloat(a); ok {
		bn, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %v with %v", a, b)
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %v with %v", a, b)
		}
		return strings.Compare(as, bs), nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %v with %v", a, b)
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("cannot compare values of type %T", a)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
