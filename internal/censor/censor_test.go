package censor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siftql/sift/pkg/schema"
)

func testRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.MustRegister(
		schema.NewEntity("country").
			AddField("id", schema.TypeInt).
			AddField("name", schema.TypeString).
			AddField("population", schema.TypeInt).
			AddToMany("rivers", "river"),
		schema.NewEntity("river").
			AddField("id", schema.TypeInt).
			AddField("name", schema.TypeString).
			AddToOne("country", "country"),
	)
	return reg
}

func TestGlobalPrivate(t *testing.T) {
	c := New(testRegistry(), nil, nil,
		map[string][]string{"country": {"population"}}, nil, nil)

	assert.True(t, c.IsPrivate("country", "population"))
	assert.False(t, c.IsPrivate("country", "name"))
	assert.False(t, c.IsPrivate("river", "name"))
}

func TestQueryPrivateAddsToGlobal(t *testing.T) {
	c := New(testRegistry(), nil,
		map[string][]string{"country": {"name"}},
		map[string][]string{"country": {"population"}}, nil, nil)

	assert.True(t, c.IsPrivate("country", "name"))
	assert.True(t, c.IsPrivate("country", "population"))
}

// A per-query public list supersedes every private list for that
// entity.
func TestQueryPublicOverridesPrivate(t *testing.T) {
	c := New(testRegistry(),
		map[string][]string{"country": {"population"}},
		map[string][]string{"country": {"population"}},
		map[string][]string{"country": {"population"}}, nil, nil)

	assert.False(t, c.IsPrivate("country", "population"))
	assert.True(t, c.IsPrivate("country", "name"))
}

type denyRivers struct{}

func (denyRivers) CanView(_ interface{}, entity string) bool {
	return entity != "river"
}

func TestPermissionChecker(t *testing.T) {
	c := New(testRegistry(), nil, nil, nil, "alice", denyRivers{})

	assert.True(t, c.IsPrivate("country", "rivers"))
	// Scalar attributes are never permission-censored.
	assert.False(t, c.IsPrivate("country", "name"))
}

// The permission checker outranks a public declaration.
func TestPermissionBeatsPublicList(t *testing.T) {
	c := New(testRegistry(),
		map[string][]string{"country": {"rivers"}},
		nil, nil, "alice", denyRivers{})

	assert.True(t, c.IsPrivate("country", "rivers"))
}

func TestVisibleAttributes(t *testing.T) {
	c := New(testRegistry(), nil, nil,
		map[string][]string{"country": {"population"}}, nil, nil)

	assert.Equal(t, []string{"id", "name", "rivers"}, c.VisibleAttributes("country"))
	assert.Equal(t, []string{"rivers"}, c.VisibleRelations("country"))
}
