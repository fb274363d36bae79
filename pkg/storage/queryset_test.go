package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/fixture"
	"github.com/siftql/sift/pkg/storage"
)

func pred(t *testing.T, path, raw string) *filter.Predicate {
	t.Helper()
	p, err := filter.Compile(path, raw, true, filter.DefaultTable())
	require.NoError(t, err)
	return p
}

func names(rows []storage.Instance) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["name"].(string)
	}
	return out
}

func TestFilter(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("river").
		Filter(pred(t, "length", ">2000")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Nile", "Yangtze", "Yellow River"}, names(res.Rows()))
}

func TestFilterThroughRelation(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Filter(pred(t, "region.continent.name", "Europe")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"France", "Germany", "Italy"}, names(res.Rows()))
}

// A to-many path matches when any reachable value matches.
func TestFilterToManyAny(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Filter(pred(t, "rivers.length", ">6000")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Egypt", "China"}, names(res.Rows()))

	// Negation applies to the whole row, not per value.
	res, err = store.Source("country").
		Filter(pred(t, "rivers.length", "!6650")).
		Execute(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, names(res.Rows()), "Egypt")
}

func TestSort(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("river").
		Sort("-length").
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nile", res.Rows()[0]["name"])
	assert.Equal(t, "Po", res.Rows()[len(res.Rows())-1]["name"])
}

func TestSortByRelationPath(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").
		Sort("region.name", "name").
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"China", "Egypt", "Italy", "France", "Germany"}, names(res.Rows()))
}

func TestOffsetLimit(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("river").
		Sort("length").
		Offset(1).
		Limit(2).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Seine", "Loire"}, names(res.Rows()))

	res, err = store.Source("river").Offset(100).Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rows())
}

func TestQuerysetImmutable(t *testing.T) {
	store := fixture.Store()
	base := store.Source("river")

	_ = base.Filter(pred(t, "length", ">99999"))
	res, err := base.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows(), 7)
}

func TestCount(t *testing.T) {
	store := fixture.Store()

	n, err := store.Source("river").
		Filter(pred(t, "length", "]2000")).
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExecuteCancelled(t *testing.T) {
	store := fixture.Store()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Source("river").Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrefetchBoundedQueries(t *testing.T) {
	store := fixture.Store()
	store.ResetQueries()

	res, err := store.Source("country").
		Prefetch("region", "region.continent").
		Execute(context.Background())
	require.NoError(t, err)

	// One query for the rows plus one per prefetched path, independent
	// of row count.
	assert.Equal(t, 3, store.Queries())

	for _, row := range res.Rows() {
		related, err := res.Related("region", row["id"])
		require.NoError(t, err)
		require.Len(t, related, 1)
		nested, err := res.Related("region.continent", related[0]["id"])
		require.NoError(t, err)
		require.Len(t, nested, 1)
	}
	assert.Equal(t, 3, store.Queries())
}

func TestRelatedRequiresPrefetch(t *testing.T) {
	store := fixture.Store()

	res, err := store.Source("country").Execute(context.Background())
	require.NoError(t, err)
	_, err = res.Related("region", 1)
	assert.Error(t, err)
}
