package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/config"
	"github.com/crashhook/sdk-go/plugin"
)

var (
	cfgFile    string
	appVersion = "dev"

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "crashdemo",
	Short: "Exercise crash reporting end to end",
	Long: `crashdemo wires the crash reporting plugin into a small program and
lets you trigger panics, memory faults and signals to see what gets
reported, and inspect the minidumps left behind.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
	}
	return err
}

func SetVersion(version string) {
	appVersion = version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./crashhook.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("events-file", "",
		"also append events as JSON lines to this file")

	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("transports.file", rootCmd.PersistentFlags().Lookup("events-file"))
}

// setup loads the configuration and starts the plugin.
func setup(ctx context.Context) (*plugin.Plugin, *zap.Logger, error) {
	l := config.NewLoaderWithViper(v)
	if cfgFile != "" {
		l = l.WithConfigFile(cfgFile)
	}
	cfg, err := l.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Sink.Release == "" {
		cfg.Sink.Release = "crashdemo@" + appVersion
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if f := l.ConfigFile(); f != "" {
		logger.Debug("loaded config", zap.String("file", f))
	}

	opts, err := config.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	p, err := plugin.Init(opts)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}
