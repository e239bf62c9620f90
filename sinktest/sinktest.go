// Package sinktest provides an in-memory transport for tests that need to
// observe what a sink client delivers.
package sinktest

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/sink"
)

// Transport records every event it is sent.
type Transport struct {
	mu     sync.Mutex
	events []*event.Event
	closed bool

	// Delay is slept before recording each event.
	Delay time.Duration
	// Err, when set, is returned by Send instead of recording.
	Err error
}

var _ sink.Transport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) Send(ev *event.Event) error {
	if t.Delay > 0 {
		time.Sleep(t.Delay)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Err != nil {
		return t.Err
	}
	t.events = append(t.events, ev)
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

// Events returns the events recorded so far.
func (t *Transport) Events() []*event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*event.Event(nil), t.events...)
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// Options returns client options that deliver to tr and log to the test.
func Options(t testing.TB, tr *Transport) sink.Options {
	return sink.Options{
		Release:     "test@1.0.0",
		Environment: "test",
		Transports:  []sink.Transport{tr},
		Logger:      zaptest.NewLogger(t),
	}
}

// Init binds a fresh client built from opts and unbinds it when the test
// ends.
func Init(t testing.TB, opts sink.Options) *sink.Client {
	t.Helper()

	c, err := sink.Init(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = c.Close()
		sink.Bind(nil)
	})
	return c
}
