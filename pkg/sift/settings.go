package sift

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings are the process-wide defaults of the engine. Per-query
// options may override the censoring lists but never the separators or
// the limits.
type Settings struct {
	// MaxDepth is the maximum number of segments a field path may have.
	MaxDepth int `mapstructure:"max_depth"`
	// FieldSep separates key=value pairs inside directive values.
	FieldSep string `mapstructure:"field_sep"`
	// ValueSep separates values inside one directive pair.
	ValueSep string `mapstructure:"value_sep"`
	// DefaultLimit is the page size applied when the query gives none.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit caps the page size. A requested limit of 0 means "as
	// many as allowed" and resolves to this value.
	MaxLimit int `mapstructure:"max_limit"`
	// PrivateFields hides attributes process-wide, keyed by entity.
	PrivateFields map[string][]string `mapstructure:"private_fields"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		MaxDepth:      10,
		FieldSep:      "|",
		ValueSep:      "'",
		DefaultLimit:  10,
		MaxLimit:      200,
		PrivateFields: map[string][]string{},
	}
}

// LoadSettings reads settings from a viper instance, falling back to
// the defaults for any key the configuration omits.
func LoadSettings(v *viper.Viper) (Settings, error) {
	s := DefaultSettings()
	v.SetDefault("max_depth", s.MaxDepth)
	v.SetDefault("field_sep", s.FieldSep)
	v.SetDefault("value_sep", s.ValueSep)
	v.SetDefault("default_limit", s.DefaultLimit)
	v.SetDefault("max_limit", s.MaxLimit)
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, s.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (s Settings) Validate() error {
	if s.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", s.MaxDepth)
	}
	if s.FieldSep == "" || s.ValueSep == "" {
		return fmt.Errorf("field_sep and value_sep must not be empty")
	}
	if s.FieldSep == s.ValueSep {
		return fmt.Errorf("field_sep and value_sep must differ, both are %q", s.FieldSep)
	}
	if s.DefaultLimit < 0 || s.MaxLimit < 1 {
		return fmt.Errorf("default_limit must be non-negative and max_limit positive")
	}
	return nil
}
