package sift

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/pkg/qerr"
)

// Command is one stage of the evaluation pipeline. Match decides which
// parameter keys the stage consumes. A Terminal stage runs exactly
// once whether or not a parameter matched it, and reads its own
// parameters from the query. Stages run in the pipeline's declared
// order regardless of parameter order, and receive every value
// supplied for a matching key at once.
type Command struct {
	Name     string
	Match    func(key string) bool
	Terminal bool
	Run      func(ctx context.Context, q *Query, key string, values []string) error
}

func exact(names ...string) func(string) bool {
	return func(key string) bool {
		for _, n := range names {
			if key == n {
				return true
			}
		}
		return false
	}
}

// DefaultPipeline returns the stock stage order. The order is part of
// the contract: computed attributes are declared before filters so
// that filters can reference their aliases, filtering and sorting run
// before pagination, and the terminal stage runs last.
func DefaultPipeline() []Command {
	return []Command{
		{Name: "case", Match: exact("c:case"), Run: runCase},
		{Name: "annotate", Match: exact("c:annotate"), Run: runAnnotate},
		{Name: "filter", Match: isFilterKey, Run: runFilter},
		{Name: "distinct", Match: exact("c:distinct"), Run: runDistinct},
		{Name: "sort", Match: exact("c:sort"), Run: runSort},
		{Name: "subset", Match: exact("c:start", "c:limit"), Run: runSubset},
		{Name: "join", Match: exact("c:join"), Run: runJoin},
		{Name: "show", Match: exact("c:show", "c:hide"), Run: runShow},
		{Name: "aggregate", Match: exact("c:aggregate"), Run: runAggregate},
		{Name: "count", Match: exact("c:count"), Run: runCount},
		{Name: "time", Match: exact("c:time"), Run: runTime},
		{Name: "evaluate", Match: exact("c:evaluate"), Terminal: true, Run: runEvaluate},
	}
}

func isFilterKey(key string) bool {
	return !strings.HasPrefix(key, DirectivePrefix)
}

// lastBool applies the last-value-wins rule for boolean directives.
func lastBool(directive string, values []string, fallback bool) (bool, error) {
	if len(values) == 0 {
		return fallback, nil
	}
	switch values[len(values)-1] {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &qerr.InvalidDirectiveError{
		Directive: directive,
		Reason:    fmt.Sprintf("value must be 0 or 1 (received %q)", values[len(values)-1]),
	}
}

func runCase(_ context.Context, q *Query, _ string, values []string) error {
	sensitive, err := lastBool("c:case", values, true)
	if err != nil {
		return err
	}
	q.SetCaseSensitive(sensitive)
	return nil
}

func runAnnotate(_ context.Context, q *Query, _ string, values []string) error {
	c := q.annotationCompiler()
	for _, v := range values {
		anno, err := c.CompileAnnotation(v)
		if err != nil {
			return err
		}
		q.arbitrary[anno.To] = true
		q.qs = q.qs.Annotate(anno)
	}
	return nil
}

func runFilter(_ context.Context, q *Query, key string, values []string) error {
	if q.sliced {
		return &qerr.InvalidDirectiveError{
			Directive: key,
			Reason:    "cannot filter once a subset has been taken",
		}
	}
	if _, err := q.resolver.Resolve(key, q.root); err != nil {
		return err
	}
	preds := make([]*filter.Predicate, 0, len(values))
	for _, raw := range flatten(values) {
		p, err := filter.Compile(key, raw, q.caseSensitive, q.table)
		if err != nil {
			return err
		}
		preds = append(preds, p)
	}
	q.qs = q.qs.Filter(preds...)
	return nil
}

func runDistinct(_ context.Context, q *Query, _ string, values []string) error {
	if q.sliced {
		return &qerr.InvalidDirectiveError{
			Directive: "c:distinct",
			Reason:    "cannot apply distinct once a subset has been taken",
		}
	}
	distinct, err := lastBool("c:distinct", values, false)
	if err != nil {
		return err
	}
	if distinct {
		q.qs = q.qs.Distinct()
	}
	return nil
}

func runSort(_ context.Context, q *Query, _ string, values []string) error {
	if q.sliced {
		return &qerr.InvalidDirectiveError{
			Directive: "c:sort",
			Reason:    "cannot sort once a subset has been taken",
		}
	}
	keys := flatten(values)
	for _, k := range keys {
		if _, err := q.resolver.Resolve(strings.TrimPrefix(k, "-"), q.root); err != nil {
			return err
		}
	}
	q.qs = q.qs.Sort(keys...)
	return nil
}

func runSubset(_ context.Context, q *Query, key string, values []string) error {
	n, err := strconv.Atoi(values[len(values)-1])
	if err != nil || n < 0 {
		return &qerr.InvalidDirectiveError{
			Directive: key,
			Reason:    fmt.Sprintf("value must be a non-negative integer (received %q)", values[len(values)-1]),
		}
	}
	switch key {
	case "c:start":
		q.qs = q.qs.Offset(n)
	case "c:limit":
		if n == 0 || n > q.settings.MaxLimit {
			n = q.settings.MaxLimit
		}
		q.qs = q.qs.Limit(n)
		q.limited = true
	}
	q.sliced = true
	return nil
}

func runJoin(_ context.Context, q *Query, _ string, values []string) error {
	for _, v := range values {
		if err := q.tree.AddValue(v); err != nil {
			return err
		}
	}
	return nil
}

func runShow(_ context.Context, q *Query, key string, values []string) error {
	fields := flatten(values)
	for _, f := range fields {
		if _, err := q.resolver.Resolve(f, q.root); err != nil {
			return err
		}
	}
	switch key {
	case "c:show":
		q.show = append(q.show, fields...)
	case "c:hide":
		q.hide = append(q.hide, fields...)
	}
	return nil
}

func runAggregate(ctx context.Context, q *Query, _ string, values []string) error {
	c := q.annotationCompiler()
	aggs := make([]*aggregate.Aggregation, 0, len(values))
	for _, v := range values {
		agg, err := c.CompileAggregation(v)
		if err != nil {
			return err
		}
		q.arbitrary[agg.To] = true
		aggs = append(aggs, agg)
	}
	results, err := q.qs.Aggregate(ctx, aggs)
	if err != nil {
		return err
	}
	for _, agg := range aggs {
		q.env.Set(agg.To, results[agg.To])
	}
	return nil
}

func runCount(ctx context.Context, q *Query, _ string, values []string) error {
	count, err := lastBool("c:count", values, false)
	if err != nil {
		return err
	}
	if !count {
		return nil
	}
	n, err := q.qs.Count(ctx)
	if err != nil {
		return err
	}
	q.env.Set("count", n)
	return nil
}

func runTime(_ context.Context, q *Query, _ string, values []string) error {
	timed, err := lastBool("c:time", values, false)
	if err != nil {
		return err
	}
	q.timed = timed
	return nil
}

// runEvaluate is the terminal stage: it executes the compiled plan,
// eager-loads every expanded relation path and serializes the rows.
func runEvaluate(ctx context.Context, q *Query, _ string, _ []string) error {
	evaluate, err := lastBool("c:evaluate", q.paramValues("c:evaluate"), true)
	if err != nil {
		return err
	}
	if !evaluate {
		return nil
	}

	qs := q.qs
	if !q.limited && q.settings.DefaultLimit > 0 {
		qs = qs.Limit(q.settings.DefaultLimit)
	}
	qs = qs.Prefetch(q.tree.Paths()...)

	res, err := qs.Execute(ctx)
	if err != nil {
		return err
	}
	rows, err := q.serializeRows(res)
	if err != nil {
		return err
	}
	q.env.Set("rows", rows)
	return nil
}

// flatten applies the two list-composition levels: repeated keys and
// comma-separated values within one occurrence.
func flatten(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}
