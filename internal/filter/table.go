package filter

// Op is a comparison operator applied to one resolved attribute path.
type Op int

const (
	OpEqual Op = iota
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpStartsWith
	OpEndsWith
	OpContains
)

// String returns the string representation of the operator.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "eq"
	case OpLessThan:
		return "lt"
	case OpLessThanOrEqual:
		return "lte"
	case OpGreaterThan:
		return "gt"
	case OpGreaterThanOrEqual:
		return "gte"
	case OpStartsWith:
		return "startswith"
	case OpEndsWith:
		return "endswith"
	case OpContains:
		return "contains"
	default:
		return "unknown"
	}
}

type tableKey struct {
	modifier string
	kind     Kind
}

// Table maps (modifier, inferred kind) pairs to comparison operators.
// It is an explicit value constructed at startup and passed into the
// compiler; there is no process-wide mutable table.
type Table struct {
	ops     map[tableKey]Op
	negated map[string]bool
}

// NewTable creates an empty table with the given set of negating
// modifiers.
func NewTable(negated ...string) *Table {
	neg := make(map[string]bool, len(negated))
	for _, m := range negated {
		neg[m] = true
	}
	return &Table{ops: make(map[tableKey]Op), negated: neg}
}

// Set defines the operator for a (modifier, kind) pair.
func (t *Table) Set(modifier string, kind Kind, op Op) *Table {
	t.ops[tableKey{modifier, kind}] = op
	return t
}

// Lookup returns the operator for a (modifier, kind) pair.
func (t *Table) Lookup(modifier string, kind Kind) (Op, bool) {
	op, ok := t.ops[tableKey{modifier, kind}]
	return op, ok
}

// IsModifier reports whether c is a registered modifier character.
func (t *Table) IsModifier(c byte) bool {
	s := string(c)
	for key := range t.ops {
		if key.modifier == s {
			return true
		}
	}
	return false
}

// IsNegated reports whether the modifier compiles to a negated predicate.
func (t *Table) IsNegated(modifier string) bool {
	return t.negated[modifier]
}

// DefaultTable returns the standard modifier/type table:
//
//	""  equality        int, string, time, null
//	"!" not-equal       int, string, time, null
//	"<" less-than       int, float, string, time
//	"[" less-or-equal   int, float, string, time
//	">" greater-than    int, float, string, time
//	"]" greater-or-eq   int, float, string, time
//	"^" starts-with     string
//	"$" ends-with       string
//	"*" contains        string
//	"~" not-contains    string
//
// "!" and "~" are negating. Pairs outside the table (such as ordering
// against null) fail compilation.
func DefaultTable() *Table {
	t := NewTable("!", "~")

	for _, k := range []Kind{KindInt, KindString, KindTime, KindNull} {
		t.Set("", k, OpEqual)
		t.Set("!", k, OpEqual)
	}
	for _, k := range []Kind{KindInt, KindFloat, KindString, KindTime} {
		t.Set("<", k, OpLessThan)
		t.Set("[", k, OpLessThanOrEqual)
		t.Set(">", k, OpGreaterThan)
		t.Set("]", k, OpGreaterThanOrEqual)
	}
	t.Set("^", KindString, OpStartsWith)
	t.Set("$", KindString, OpEndsWith)
	t.Set("*", KindString, OpContains)
	t.Set("~", KindString, OpContains)

	return t
}
