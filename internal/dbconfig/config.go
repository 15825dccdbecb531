// Package dbconfig loads the storage engine's tunables from a YAML
// file via Viper, the same configuration library and mapstructure tag
// convention the rest of the dependency pack uses.
package dbconfig

import (
	"github.com/spf13/viper"
)

// Config holds the engine's tunable parameters. Defaults match the
// source implementation's DatabaseConfig::default().
type Config struct {
	PageSize       int `mapstructure:"page_size"`
	BufferPoolSize int `mapstructure:"buffer_pool_size"`
	MaxWALSizeMB   int `mapstructure:"max_wal_size_mb"`
}

// DefaultConfig returns the engine's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		PageSize:       4096,
		BufferPoolSize: 1000,
		MaxWALSizeMB:   64,
	}
}

// LoadConfig reads YAML configuration from path, falling back to
// DefaultConfig's values for any field the file doesn't set.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("buffer_pool_size", def.BufferPoolSize)
	v.SetDefault("max_wal_size_mb", def.MaxWALSizeMB)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
