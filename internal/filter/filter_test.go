package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftql/sift/pkg/qerr"
)

func compile(t *testing.T, raw string) *Predicate {
	t.Helper()
	p, err := Compile("field", raw, true, DefaultTable())
	require.NoError(t, err)
	return p
}

func TestCompileModifiers(t *testing.T) {
	tests := []struct {
		raw     string
		op      Op
		negated bool
	}{
		{"10", OpEqual, false},
		{"!10", OpEqual, true},
		{"<10", OpLessThan, false},
		{"[10", OpLessThanOrEqual, false},
		{">10", OpGreaterThan, false},
		{"]10", OpGreaterThanOrEqual, false},
		{"^ab", OpStartsWith, false},
		{"$ab", OpEndsWith, false},
		{"*ab", OpContains, false},
		{"~ab", OpContains, true},
	}
	for _, tt := range tests {
		p := compile(t, tt.raw)
		assert.Equal(t, tt.op, p.Op, "raw %q", tt.raw)
		assert.Equal(t, tt.negated, p.Negated, "raw %q", tt.raw)
	}
}

func TestCompileUnsupportedPredicate(t *testing.T) {
	// Ordering against null has no table entry.
	_, err := Compile("field", ">", true, DefaultTable())
	require.Error(t, err)
	var upe *qerr.UnsupportedPredicateError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, qerr.CodeUnsupportedPredicate, upe.Code())

	// Affix operators only exist for strings.
	_, err = Compile("field", "^12", true, DefaultTable())
	assert.Error(t, err)
}

// Compiling "!" must yield the exact logical negation of "" over the
// same literal.
func TestNegationRoundTrip(t *testing.T) {
	literals := []string{"", "10", "3000-01-01", "paris"}
	samples := [][]interface{}{
		{nil}, {int64(10)}, {int64(11)}, {"paris"}, {"lyon"}, {},
	}
	for _, lit := range literals {
		direct := compile(t, lit)
		negated := compile(t, "!"+lit)
		for _, values := range samples {
			assert.Equal(t, !direct.Match(values), negated.Match(values),
				"literal %q against %v", lit, values)
		}
	}
}

func TestMatchAnySemantics(t *testing.T) {
	p := compile(t, ">2000")
	assert.True(t, p.Match([]interface{}{100, 5000}))
	assert.False(t, p.Match([]interface{}{100, 200}))

	// Negation applies after the any() fold.
	n := compile(t, "!5000")
	assert.False(t, n.Match([]interface{}{100, 5000}))
	assert.True(t, n.Match([]interface{}{100, 200}))
}

func TestMatchNullAgainstMissing(t *testing.T) {
	eq := compile(t, "")
	assert.True(t, eq.Match(nil))
	assert.True(t, eq.Match([]interface{}{nil}))
	assert.False(t, eq.Match([]interface{}{3}))

	ne := compile(t, "!")
	assert.False(t, ne.Match(nil))
	assert.True(t, ne.Match([]interface{}{3}))
}

func TestMatchCaseFolding(t *testing.T) {
	sensitive, err := Compile("field", "Paris", true, DefaultTable())
	require.NoError(t, err)
	insensitive, err := Compile("field", "Paris", false, DefaultTable())
	require.NoError(t, err)

	assert.False(t, sensitive.Match([]interface{}{"paris"}))
	assert.True(t, insensitive.Match([]interface{}{"paris"}))
}

func TestMatchTime(t *testing.T) {
	before := compile(t, "<2000-01-01")
	v, _ := ParseValue("1999-06-01")
	assert.True(t, before.Match([]interface{}{v}))
	v, _ = ParseValue("2001-06-01")
	assert.False(t, before.Match([]interface{}{v}))
}

func TestMatchNumericCoercion(t *testing.T) {
	p := compile(t, "]2000")
	assert.True(t, p.Match([]interface{}{2000}))
	assert.True(t, p.Match([]interface{}{int64(2001)}))
	assert.True(t, p.Match([]interface{}{2000.5}))
	assert.False(t, p.Match([]interface{}{int32(1999)}))
	assert.False(t, p.Match([]interface{}{"2001"}))
}
