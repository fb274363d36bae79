package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/fixture"
	"github.com/siftql/sift/pkg/storage"
)

func anno(t *testing.T, field, fn, to string, early bool, filters ...*filter.Predicate) *aggregate.Annotation {
	t.Helper()
	f, ok := aggregate.DefaultRegistry()[fn]
	require.True(t, ok)
	return &aggregate.Annotation{
		Field: field, To: to, FuncName: fn, Fn: f,
		Filters: filters, Early: early,
	}
}

func byName(rows []storage.Instance) map[string]storage.Instance {
	out := make(map[string]storage.Instance, len(rows))
	for _, r := range rows {
		out[r["name"].(string)] = r
	}
	return out
}

func TestAnnotateCount(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb_rivers", false)).
		Execute(context.Background())
	require.NoError(t, err)

	rows := byName(res.Rows())
	assert.Equal(t, 1, rows["Egypt"]["nb_rivers"])
	assert.Equal(t, 2, rows["China"]["nb_rivers"])
	assert.Equal(t, 2, rows["France"]["nb_rivers"])
}

func TestAnnotateMaxThroughPath(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Annotate(anno(t, "rivers.length", "max", "longest", false)).
		Execute(context.Background())
	require.NoError(t, err)

	rows := byName(res.Rows())
	assert.Equal(t, 6650, rows["Egypt"]["longest"])
	assert.Equal(t, 6300, rows["China"]["longest"])
}

// Sub-filters restrict the aggregate's input per row. Their paths are
// root-relative: the rivers.length prefix names the same relation the
// annotation aggregates.
func TestAnnotateWithFilters(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb_big", false,
			pred(t, "rivers.length", ">2000"))).
		Execute(context.Background())
	require.NoError(t, err)

	rows := byName(res.Rows())
	assert.Equal(t, 1, rows["Egypt"]["nb_big"])
	assert.Equal(t, 2, rows["China"]["nb_big"])
	assert.Equal(t, 0, rows["France"]["nb_big"])
}

// A root-level sub-filter gates the whole aggregate: rows failing it
// aggregate over no input at all.
func TestAnnotateWithRootFilter(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb", false,
			pred(t, "population", ">100000000"))).
		Execute(context.Background())
	require.NoError(t, err)

	rows := byName(res.Rows())
	assert.Equal(t, 1, rows["Egypt"]["nb"])
	assert.Equal(t, 2, rows["China"]["nb"])
	assert.Equal(t, 0, rows["France"]["nb"])
}

// Only early annotations are observable by main filters.
func TestAnnotateEarlyVsLate(t *testing.T) {
	store := fixture.Store()

	early, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb", true)).
		Filter(pred(t, "nb", "2")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"China", "France"}, names(early.Rows()))

	late, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb", false)).
		Filter(pred(t, "nb", "2")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, late.Rows())
}

func TestAnnotateDoesNotMutateStore(t *testing.T) {
	store := fixture.Store()

	_, err := store.Source("country").
		Annotate(anno(t, "rivers", "count", "nb", false)).
		Execute(context.Background())
	require.NoError(t, err)

	res, err := store.Source("country").Execute(context.Background())
	require.NoError(t, err)
	for _, row := range res.Rows() {
		_, ok := row["nb"]
		assert.False(t, ok)
	}
}

func TestAggregate(t *testing.T) {
	store := fixture.Store()

	out, err := store.Source("river").Aggregate(context.Background(), []*aggregate.Aggregation{
		{Field: "length", To: "longest", FuncName: "max", Fn: aggregate.Max},
		{Field: "length", To: "total", FuncName: "sum", Fn: aggregate.Sum},
	})
	require.NoError(t, err)
	assert.Equal(t, 6650, out["longest"])
	assert.Equal(t, 22080.0, out["total"])
}

func TestAggregateThroughRelation(t *testing.T) {
	store := fixture.Store()

	out, err := store.Source("country").
		Filter(pred(t, "region.continent.name", "Europe")).
		Aggregate(context.Background(), []*aggregate.Aggregation{
			{Field: "rivers.length", To: "longest", FuncName: "max", Fn: aggregate.Max},
		})
	require.NoError(t, err)
	assert.Equal(t, 1233, out["longest"])
}

func TestPathValues(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Filter(pred(t, "name", "China")).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows(), 1)

	values := store.PathValues("country", res.Rows()[0], "rivers.length")
	assert.ElementsMatch(t, []interface{}{6300, 5464}, values)

	// A terminal relation segment yields the related pks.
	pks := store.PathValues("country", res.Rows()[0], "rivers")
	assert.ElementsMatch(t, []interface{}{2, 3}, pks)
}
