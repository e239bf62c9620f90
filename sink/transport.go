package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
)

// Transport delivers events. Send is only ever called from the client's
// queue goroutine.
type Transport interface {
	Send(ev *event.Event) error
	Close() error
}

// Flusher is implemented by transports that buffer.
type Flusher interface {
	Flush(ctx context.Context) error
}

// LogTransport writes every event to a zap logger.
type LogTransport struct {
	logger *zap.Logger
}

var _ Transport = (*LogTransport)(nil)

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ev *event.Event) error {
	switch ev.Level {
	case event.LevelFatal, event.LevelError:
		t.logger.Error("crash event", zap.Object("event", ev))
	case event.LevelWarning:
		t.logger.Warn("crash event", zap.Object("event", ev))
	default:
		t.logger.Info("crash event", zap.Object("event", ev))
	}
	return nil
}

func (t *LogTransport) Close() error {
	_ = t.logger.Sync()
	return nil
}
