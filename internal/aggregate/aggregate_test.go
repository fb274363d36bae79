package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/censor"
	"github.com/siftql/sift/internal/fieldpath"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/fixture"
	"github.com/siftql/sift/pkg/qerr"
)

func testCompiler() *aggregate.Compiler {
	reg := fixture.Registry()
	return &aggregate.Compiler{
		Resolver: &fieldpath.Resolver{
			Intro:     reg,
			Censor:    censor.New(reg, nil, nil, nil, nil, nil),
			Arbitrary: map[string]bool{},
			Sep:       ".",
			MaxDepth:  10,
		},
		Root:     "country",
		Funcs:    aggregate.DefaultRegistry(),
		Table:    filter.DefaultTable(),
		FieldSep: "|",
		ValueSep: "'",
		Case:     true,
	}
}

func TestCompileAnnotation(t *testing.T) {
	c := testCompiler()

	anno, err := c.CompileAnnotation("field=rivers.length|func=max|to=longest")
	require.NoError(t, err)
	assert.Equal(t, "rivers.length", anno.Field)
	assert.Equal(t, "longest", anno.To)
	assert.Equal(t, "max", anno.FuncName)
	assert.False(t, anno.Early)
	assert.Empty(t, anno.Filters)
}

func TestCompileAnnotationEarlyAndFilters(t *testing.T) {
	c := testCompiler()

	anno, err := c.CompileAnnotation(
		"field=rivers|func=count|to=nb|early=1|filters=rivers.length=>2000")
	require.NoError(t, err)
	assert.True(t, anno.Early)
	require.Len(t, anno.Filters, 1)
	assert.Equal(t, "rivers.length", anno.Filters[0].Path)
	assert.Equal(t, filter.OpGreaterThan, anno.Filters[0].Op)
}

// Sub-filter paths are root-relative, so the bare target attribute is
// rejected unless the root entity also has it.
func TestCompileAnnotationFiltersAreRootRelative(t *testing.T) {
	c := testCompiler()

	_, err := c.CompileAnnotation("field=rivers|func=count|to=nb|filters=length=>2000")
	var uae *qerr.UnknownAttributeError
	require.ErrorAs(t, err, &uae)
	assert.Equal(t, "country", uae.Entity)
}

func TestCompileAnnotationMissingKeys(t *testing.T) {
	c := testCompiler()

	for _, value := range []string{
		"func=max|to=longest",
		"field=rivers.length|to=longest",
		"field=rivers.length|func=max",
	} {
		_, err := c.CompileAnnotation(value)
		var ide *qerr.InvalidDirectiveError
		assert.ErrorAs(t, err, &ide, "value %q", value)
	}
}

func TestCompileAnnotationUnknownFunc(t *testing.T) {
	c := testCompiler()

	_, err := c.CompileAnnotation("field=rivers.length|func=median|to=m")
	var ide *qerr.InvalidDirectiveError
	require.ErrorAs(t, err, &ide)
	assert.Contains(t, ide.Reason, "median")
}

func TestCompileAnnotationToCollision(t *testing.T) {
	c := testCompiler()

	// Schema attribute.
	_, err := c.CompileAnnotation("field=rivers.length|func=max|to=population")
	var ide *qerr.InvalidDirectiveError
	require.ErrorAs(t, err, &ide)

	// Previously declared computed attribute.
	c.Resolver.Arbitrary["longest"] = true
	_, err = c.CompileAnnotation("field=rivers.length|func=max|to=longest")
	assert.ErrorAs(t, err, &ide)

	// Invalid identifier.
	_, err = c.CompileAnnotation("field=rivers.length|func=max|to=1bad")
	assert.ErrorAs(t, err, &ide)
}

func TestCompileAnnotationBadEarly(t *testing.T) {
	c := testCompiler()

	_, err := c.CompileAnnotation("field=rivers.length|func=max|to=longest|early=yes")
	var ide *qerr.InvalidDirectiveError
	assert.ErrorAs(t, err, &ide)
}

func TestCompileAggregation(t *testing.T) {
	c := testCompiler()

	agg, err := c.CompileAggregation("field=population|func=sum|to=total")
	require.NoError(t, err)
	assert.Equal(t, "population", agg.Field)
	assert.Equal(t, "total", agg.To)
}
