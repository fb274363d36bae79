package sift

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 10, s.MaxDepth)
	assert.Equal(t, "|", s.FieldSep)
	assert.Equal(t, "'", s.ValueSep)
	assert.Equal(t, 10, s.DefaultLimit)
	assert.Equal(t, 200, s.MaxLimit)
	assert.NoError(t, s.Validate())
}

func TestLoadSettings(t *testing.T) {
	v := viper.New()
	v.Set("max_depth", 3)
	v.Set("private_fields", map[string][]string{"country": {"population"}})

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 3, s.MaxDepth)
	assert.Equal(t, 200, s.MaxLimit)
	assert.Equal(t, []string{"population"}, s.PrivateFields["country"])
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	s.MaxDepth = 0
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.ValueSep = s.FieldSep
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.MaxLimit = 0
	assert.Error(t, s.Validate())
}
