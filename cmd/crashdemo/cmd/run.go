package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/panics"
)

const (
	crashPanic    = "panic"
	crashSegfault = "segfault"
	crashSignal   = "signal"
	crashNone     = "none"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the plugin, leave a breadcrumb and crash",
	Long: `Start the plugin, leave a breadcrumb and crash in the requested way.

Crash modes:
  panic     panic on a guarded goroutine
  segfault  dereference a nil pointer on a guarded goroutine
  signal    send SIGSEGV to the process, translated into a panic
  none      capture a plain event and exit cleanly`,
	RunE: runRun,
}

var crashMode string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&crashMode, "crash", crashPanic,
		"crash mode (panic, segfault, signal, none)")
}

func runRun(c *cobra.Command, _ []string) error {
	p, logger, err := setup(c.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p.Breadcrumb(&event.Breadcrumb{
		Category: "crashdemo",
		Message:  "about to crash with mode " + crashMode,
		Level:    event.LevelInfo,
	})

	switch crashMode {
	case crashPanic:
		panics.Go(func() {
			panic("This is a panic from Go")
		})

	case crashSegfault:
		panics.Go(func() {
			var ptr *int
			*ptr = 1
		})

	case crashSignal:
		if err := raiseSegv(); err != nil {
			return fmt.Errorf("failed to signal self: %w", err)
		}

	case crashNone:
		id := p.Client().CaptureEvent(&event.Event{
			Level:   event.LevelInfo,
			Message: "crashdemo finished without crashing",
		})
		logger.Info("captured event", zap.String("event_id", id))
		p.OnExit()
		return p.Close()

	default:
		_ = p.Close()
		return fmt.Errorf("unknown crash mode %q", crashMode)
	}

	// the crash handler exits the process.
	time.Sleep(30 * time.Second)
	_ = p.Close()
	return fmt.Errorf("crash mode %q did not terminate the process", crashMode)
}
