// Package config loads crash reporting settings with viper and turns them
// into plugin options with concrete transports.
package config

import (
	"time"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Dump       DumpConfig       `mapstructure:"dump"`
	Script     ScriptConfig     `mapstructure:"script"`
	Transports TransportsConfig `mapstructure:"transports"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // json or console
	Development bool   `mapstructure:"development"`
}

type SinkConfig struct {
	Release             string        `mapstructure:"release"`
	Dist                string        `mapstructure:"dist"`
	Environment         string        `mapstructure:"environment"`
	ServerName          string        `mapstructure:"server_name"`
	DefaultIntegrations bool          `mapstructure:"default_integrations"`
	MaxBreadcrumbs      int           `mapstructure:"max_breadcrumbs"`
	QueueSize           int           `mapstructure:"queue_size"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
	Debug               bool          `mapstructure:"debug"`
}

type DumpConfig struct {
	Dir           string `mapstructure:"dir"`
	SanitizeStack bool   `mapstructure:"sanitize_stack"`
}

type ScriptConfig struct {
	Inject bool `mapstructure:"inject"`
	Debug  bool `mapstructure:"debug"`
}

type TransportsConfig struct {
	Log    bool         `mapstructure:"log"`
	File   string       `mapstructure:"file"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Influx InfluxConfig `mapstructure:"influx"`
}

// RedisConfig enables the Redis stream transport. The server address comes
// from REDIS_HOST and REDIS_PORT.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
}

type InfluxConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr"`
	Database    string `mapstructure:"database"`
	Measurement string `mapstructure:"measurement"`
}
