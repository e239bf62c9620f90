package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/integration"
	"github.com/crashhook/sdk-go/minidump"
	"github.com/crashhook/sdk-go/plugin"
	"github.com/crashhook/sdk-go/sink"
)

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Format != "" {
		zcfg.Encoding = cfg.Format
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

// Build turns cfg into plugin options. Transports are opened here; if one
// fails, those already opened are closed again.
func Build(ctx context.Context, cfg *Config, logger *zap.Logger) (plugin.Options, error) {
	transports, err := buildTransports(ctx, cfg.Transports, logger)
	if err != nil {
		return plugin.Options{}, err
	}

	serverName := cfg.Sink.ServerName
	if serverName == "" {
		serverName, _ = os.Hostname()
	}

	return plugin.Options{
		Script: plugin.ScriptOptions{
			Inject: cfg.Script.Inject,
			Debug:  cfg.Script.Debug,
		},
		Client: sink.Options{
			Release:             cfg.Sink.Release,
			Dist:                cfg.Sink.Dist,
			Environment:         cfg.Sink.Environment,
			ServerName:          serverName,
			DefaultIntegrations: cfg.Sink.DefaultIntegrations,
			Transports:          transports,
			MaxBreadcrumbs:      cfg.Sink.MaxBreadcrumbs,
			QueueSize:           cfg.Sink.QueueSize,
			ShutdownTimeout:     cfg.Sink.ShutdownTimeout,
			Logger:              logger,
			Debug:               cfg.Sink.Debug,
		},
		Panic: []integration.Option{
			integration.WithDumpConfig(minidump.Config{
				Dir:           cfg.Dump.Dir,
				SanitizeStack: cfg.Dump.SanitizeStack,
			}),
		},
	}, nil
}

func buildTransports(ctx context.Context, cfg TransportsConfig, logger *zap.Logger) ([]sink.Transport, error) {
	var (
		out  []sink.Transport
		fail = func(err error) ([]sink.Transport, error) {
			var merr *multierror.Error
			merr = multierror.Append(merr, err)
			for _, t := range out {
				merr = multierror.Append(merr, t.Close())
			}
			return nil, merr.ErrorOrNil()
		}
	)

	if cfg.Log {
		out = append(out, sink.NewLogTransport(logger))
	}

	if cfg.File != "" {
		t, err := sink.NewFileTransport(cfg.File)
		if err != nil {
			return fail(fmt.Errorf("file transport: %w", err))
		}
		out = append(out, t)
	}

	if cfg.Redis.Enabled {
		t, err := sink.NewRedisTransport(ctx, cfg.Redis.Stream, logger)
		if err != nil {
			return fail(fmt.Errorf("redis transport: %w", err))
		}
		out = append(out, t)
	}

	if cfg.Influx.Enabled {
		t, err := sink.NewInfluxTransport(sink.InfluxConfig{
			Addr:        cfg.Influx.Addr,
			Database:    cfg.Influx.Database,
			Measurement: cfg.Influx.Measurement,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("influx transport: %w", err))
		}
		out = append(out, t)
	}

	if len(out) == 0 {
		logger.Warn("no transports configured; falling back to the log transport")
		out = append(out, sink.NewLogTransport(logger))
	}
	return out, nil
}
