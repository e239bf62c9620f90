package integration

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/fault"
	"github.com/crashhook/sdk-go/panics"
	"github.com/crashhook/sdk-go/sink"
)

var (
	// installed flips once per process; there is no way back.
	installed atomic.Bool

	installFault = fault.Install
)

// Installed reports whether the process-wide hook is in place.
func Installed() bool {
	return installed.Load()
}

// install chains the panic hook and starts fault translation. Only the
// first call does anything. Failures are logged, never returned.
func install(logger *zap.Logger) {
	if !installed.CompareAndSwap(false, true) {
		return
	}

	next := panics.TakeHook()
	panics.SetHook(func(info *panics.Info) {
		handlePanic(info)
		next(info)
	})

	switch err := installFault(); {
	case errors.Is(err, fault.ErrUnsupported):
		logger.Info("fault translation not available on this platform")
	case err != nil:
		logger.Error("failed to install fault translation", zap.Error(err))
	default:
		logger.Debug("panic hook installed")
	}
}

// handlePanic reports info through the panic integration of the current
// client, if there is one.
func handlePanic(info *panics.Info) {
	c := sink.CurrentClient()
	if c == nil {
		return
	}
	p, ok := c.Integration(Name).(*PanicIntegration)
	if !ok {
		return
	}
	p.handle(c, info)
}
