// Package config loads the host application configuration: engine
// settings, the entity schema and the backing services.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/siftql/sift/pkg/schema"
	"github.com/siftql/sift/pkg/sift"
)

// FieldConfig declares one scalar field of an entity.
type FieldConfig struct {
	Name   string `mapstructure:"name"`
	Type   string `mapstructure:"type"`
	Column string `mapstructure:"column"`
}

// RelationConfig declares one relation of an entity.
type RelationConfig struct {
	Name       string `mapstructure:"name"`
	Target     string `mapstructure:"target"`
	ToMany     bool   `mapstructure:"to_many"`
	ForeignKey string `mapstructure:"foreign_key"`
	Inverse    string `mapstructure:"inverse"`
}

// EntityConfig declares one entity of the schema.
type EntityConfig struct {
	Name      string           `mapstructure:"name"`
	PK        string           `mapstructure:"pk"`
	Table     string           `mapstructure:"table"`
	Fields    []FieldConfig    `mapstructure:"fields"`
	Relations []RelationConfig `mapstructure:"relations"`
}

// DatabaseConfig selects the SQL backend the store is loaded from.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig enables the envelope cache when Addr is set.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	JWTKey string `mapstructure:"jwt_key"`
}

// Config is the full host configuration.
type Config struct {
	Settings sift.Settings  `mapstructure:"settings"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Entities []EntityConfig `mapstructure:"entities"`
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SIFT")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	sub := v.Sub("settings")
	if sub == nil {
		sub = viper.New()
	}
	settings, err := sift.LoadSettings(sub)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Settings: settings}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Settings = settings
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 5 * time.Minute
	}
	if len(cfg.Entities) == 0 {
		return nil, fmt.Errorf("config declares no entities")
	}
	return cfg, nil
}

// BuildRegistry turns the declared entities into a validated schema
// registry.
func (c *Config) BuildRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, ec := range c.Entities {
		e := schema.NewEntity(ec.Name)
		if ec.PK != "" {
			e.PK = ec.PK
		}
		e.Table = ec.Table
		for _, fc := range ec.Fields {
			typ, err := schema.ParseFieldType(fc.Type)
			if err != nil {
				return nil, fmt.Errorf("entity %s, field %s: %w", ec.Name, fc.Name, err)
			}
			e.AddField(fc.Name, typ)
			e.Fields[fc.Name].Column = fc.Column
		}
		for _, rc := range ec.Relations {
			if rc.ToMany {
				e.AddToMany(rc.Name, rc.Target)
				e.Relations[rc.Name].Inverse = rc.Inverse
			} else {
				e.AddToOne(rc.Name, rc.Target)
				e.Relations[rc.Name].ForeignKey = rc.ForeignKey
			}
		}
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
