package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/crashhook/sdk-go/sink"
)

const EnvPrefix = "CRASHHOOK"

// Loader reads configuration from, highest precedence first: values set
// on the viper instance (e.g. bound flags), CRASHHOOK_* environment
// variables, a YAML file, and defaults.
type Loader struct {
	v           *viper.Viper
	configFile  string
	searchPaths []string
}

func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader on top of an existing viper
// instance, for flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "crashhook"))
	}
	return &Loader{v: v, searchPaths: paths}
}

// WithConfigFile sets an explicit config file. It must exist.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithSearchPaths replaces the directories searched for crashhook.yaml.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = paths
	return l
}

func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("crashhook")
		l.v.SetConfigType("yaml")
		for _, p := range l.searchPaths {
			l.v.AddConfigPath(p)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFile returns the file the configuration was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "json")
	l.v.SetDefault("log.development", false)

	l.v.SetDefault("sink.release", "")
	l.v.SetDefault("sink.dist", "")
	l.v.SetDefault("sink.environment", "production")
	l.v.SetDefault("sink.server_name", "")
	l.v.SetDefault("sink.default_integrations", true)
	l.v.SetDefault("sink.max_breadcrumbs", sink.DefaultMaxBreadcrumbs)
	l.v.SetDefault("sink.queue_size", sink.DefaultQueueSize)
	l.v.SetDefault("sink.shutdown_timeout", sink.DefaultShutdownTimeout)
	l.v.SetDefault("sink.debug", false)

	l.v.SetDefault("dump.dir", os.TempDir())
	l.v.SetDefault("dump.sanitize_stack", true)

	l.v.SetDefault("script.inject", true)
	l.v.SetDefault("script.debug", false)

	l.v.SetDefault("transports.log", true)
	l.v.SetDefault("transports.file", "")
	l.v.SetDefault("transports.redis.enabled", false)
	l.v.SetDefault("transports.redis.stream", sink.DefaultRedisStream)
	l.v.SetDefault("transports.influx.enabled", false)
	l.v.SetDefault("transports.influx.addr", "")
	l.v.SetDefault("transports.influx.database", sink.DefaultInfluxDatabase)
	l.v.SetDefault("transports.influx.measurement", sink.DefaultInfluxMeasurement)
}
