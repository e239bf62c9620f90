package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crashhook/sdk-go/sink"
)

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewLoader().WithSearchPaths(t.TempDir()).Load()
	require.NoError(err)

	require.Equal("info", cfg.Log.Level)
	require.True(cfg.Sink.DefaultIntegrations)
	require.Equal(sink.DefaultMaxBreadcrumbs, cfg.Sink.MaxBreadcrumbs)
	require.Equal(sink.DefaultShutdownTimeout, cfg.Sink.ShutdownTimeout)
	require.True(cfg.Dump.SanitizeStack)
	require.Equal(os.TempDir(), cfg.Dump.Dir)
	require.True(cfg.Transports.Log)
	require.False(cfg.Transports.Redis.Enabled)
	require.Equal(sink.DefaultRedisStream, cfg.Transports.Redis.Stream)
}

func TestLoadFileAndEnv(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	yaml := []byte(`
log:
  level: debug
sink:
  release: app@2.3.4
  max_breadcrumbs: 10
  shutdown_timeout: 750ms
dump:
  dir: /var/crash
transports:
  log: false
  file: /var/log/crashhook/events.jsonl
`)
	require.NoError(os.WriteFile(filepath.Join(dir, "crashhook.yaml"), yaml, 0o644))

	t.Setenv("CRASHHOOK_SINK_ENVIRONMENT", "staging")
	t.Setenv("CRASHHOOK_SINK_MAX_BREADCRUMBS", "20")

	l := NewLoader().WithSearchPaths(dir)
	cfg, err := l.Load()
	require.NoError(err)
	require.Equal(filepath.Join(dir, "crashhook.yaml"), l.ConfigFile())

	require.Equal("debug", cfg.Log.Level)
	require.Equal("app@2.3.4", cfg.Sink.Release)
	require.Equal("staging", cfg.Sink.Environment)
	require.Equal(20, cfg.Sink.MaxBreadcrumbs)
	require.Equal(750*time.Millisecond, cfg.Sink.ShutdownTimeout)
	require.Equal("/var/crash", cfg.Dump.Dir)
	require.False(cfg.Transports.Log)
	require.Equal("/var/log/crashhook/events.jsonl", cfg.Transports.File)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.Error(t, err)
}

func TestBuildWiresTransports(t *testing.T) {
	require := require.New(t)

	cfg, err := NewLoader().WithSearchPaths(t.TempDir()).Load()
	require.NoError(err)
	cfg.Sink.Release = "app@1.0.0"
	cfg.Transports.File = filepath.Join(t.TempDir(), "events.jsonl")

	opts, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(err)

	require.Len(opts.Client.Transports, 2)
	require.IsType(&sink.LogTransport{}, opts.Client.Transports[0])
	require.IsType(&sink.FileTransport{}, opts.Client.Transports[1])
	require.Equal("app@1.0.0", opts.Client.Release)
	require.True(opts.Client.DefaultIntegrations)
	require.NotEmpty(opts.Client.ServerName)
	require.Len(opts.Panic, 1)

	for _, tr := range opts.Client.Transports {
		require.NoError(tr.Close())
	}
}

func TestBuildFallsBackToLogTransport(t *testing.T) {
	require := require.New(t)

	cfg := &Config{}
	opts, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(err)
	require.Len(opts.Client.Transports, 1)
	require.IsType(&sink.LogTransport{}, opts.Client.Transports[0])
}

func TestBuildClosesOnFailure(t *testing.T) {
	require := require.New(t)

	t.Setenv(sink.EnvInfluxDBAddr, "")
	cfg := &Config{Transports: TransportsConfig{
		File:   filepath.Join(t.TempDir(), "events.jsonl"),
		Influx: InfluxConfig{Enabled: true},
	}}
	_, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(err)
	require.Contains(err.Error(), "influx transport")
}

func TestNewLogger(t *testing.T) {
	require := require.New(t)

	l, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(err)
	require.True(l.Core().Enabled(-1))

	_, err = NewLogger(LogConfig{Level: "loud"})
	require.Error(err)
}
