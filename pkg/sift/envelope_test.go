package sift

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeOrder(t *testing.T) {
	e := Success()
	e.Set("count", 3)
	e.Set("rows", []interface{}{})

	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, `{"status":true,"count":3,"rows":[]}`, string(body))
}

func TestEnvelopeSetKeepsPosition(t *testing.T) {
	e := Success()
	e.Set("count", 1)
	e.Set("status", true)
	e.Set("count", 2)

	assert.Equal(t, []string{"status", "count"}, e.Keys())
	v, ok := e.Get("count")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestFailureEnvelope(t *testing.T) {
	e := Failure("UNKNOWN_ATTRIBUTE", "unknown attribute", map[string]interface{}{
		"unknown":          "altitude",
		"valid_attributes": []string{"id", "name"},
	})

	assert.False(t, e.Status())
	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": false,
		"message": "unknown attribute",
		"code": "UNKNOWN_ATTRIBUTE",
		"unknown": "altitude",
		"valid_attributes": ["id", "name"]
	}`, string(body))
}
