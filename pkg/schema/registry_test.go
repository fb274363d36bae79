package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(
		NewEntity("author").
			AddField("id", TypeInt).
			AddField("name", TypeString).
			AddToMany("books", "book").
			AddInverse("books", "author"),
		NewEntity("book").
			AddField("id", TypeInt).
			AddField("title", TypeString).
			AddToOne("author", "author"),
	)
	require.NoError(t, reg.Validate())
	return reg
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewEntity("author")))
	assert.Error(t, reg.Register(NewEntity("author")))
}

func TestValidateUnknownTarget(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewEntity("book").AddToOne("author", "author"))
	assert.Error(t, reg.Validate())
}

func TestValidateBadInverse(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		NewEntity("author").
			AddToMany("books", "book").
			AddInverse("books", "publisher"),
		NewEntity("book").AddToOne("author", "author"),
	)
	assert.Error(t, reg.Validate())
}

func TestIntrospection(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, []string{"books", "id", "name"}, reg.Attributes("author"))
	assert.True(t, reg.HasAttribute("book", "title"))
	assert.False(t, reg.HasAttribute("book", "pages"))

	assert.True(t, reg.IsRelation("author", "books"))
	assert.False(t, reg.IsRelation("author", "name"))
	assert.True(t, reg.IsToMany("author", "books"))
	assert.False(t, reg.IsToMany("book", "author"))

	target, ok := reg.RelationTarget("book", "author")
	assert.True(t, ok)
	assert.Equal(t, "author", target)
	_, ok = reg.RelationTarget("book", "title")
	assert.False(t, ok)

	assert.Equal(t, "id", reg.PK("book"))
	assert.Nil(t, reg.Attributes("publisher"))
}

func TestParseFieldType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "time"} {
		typ, err := ParseFieldType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
	}
	_, err := ParseFieldType("decimal")
	assert.Error(t, err)
}
