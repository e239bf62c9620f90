// Package sink is the event client crash integrations report to. It
// queues events in the background, keeps breadcrumbs in a scope, and fans
// events out to transports (zap, JSON files, Redis streams, InfluxDB).
//
// CaptureEvent and AddBreadcrumb never block. Flush waits, up to a
// bound, for everything queued before it to reach the transports.
package sink

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
)

const (
	DefaultMaxBreadcrumbs  = 100
	DefaultQueueSize       = 64
	DefaultShutdownTimeout = 2 * time.Second

	// PlatformGo is stamped on events that don't name a platform.
	PlatformGo = "go"
)

// Integration extends a client. Setup runs once per client, in the order
// integrations are listed in Options.
type Integration interface {
	Name() string
	Setup(opts *Options)
}

type Options struct {
	Release     string
	Dist        string
	Environment string
	ServerName  string

	// DefaultIntegrations asks the layer building these options to insert
	// the stock integrations in front of Integrations.
	DefaultIntegrations bool
	Integrations        []Integration

	Transports []Transport

	// MaxBreadcrumbs bounds the breadcrumb buffer. Zero means
	// DefaultMaxBreadcrumbs; negative disables breadcrumbs.
	MaxBreadcrumbs int
	QueueSize      int

	// ShutdownTimeout bounds Flush calls made without an explicit timeout.
	ShutdownTimeout time.Duration

	// BeforeSend may rewrite or drop (by returning nil) an event before it
	// is queued.
	BeforeSend func(ev *event.Event) *event.Event

	Logger *zap.Logger
	Debug  bool
}

func (o *Options) setDefaults() {
	if o.MaxBreadcrumbs == 0 {
		o.MaxBreadcrumbs = DefaultMaxBreadcrumbs
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

var current atomic.Pointer[Client]

// Init creates a client, runs integration setup and binds the client as
// the current one.
func Init(opts Options) (*Client, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	Bind(c)
	return c, nil
}

// Bind makes c the current client. A nil c unbinds.
func Bind(c *Client) {
	current.Store(c)
}

// CurrentClient returns the bound client, or nil.
func CurrentClient() *Client {
	return current.Load()
}

// CaptureEvent captures ev on the current client, if any.
func CaptureEvent(ev *event.Event) string {
	if c := CurrentClient(); c != nil {
		return c.CaptureEvent(ev)
	}
	return ""
}

// AddBreadcrumb records b on the current client, if any.
func AddBreadcrumb(b *event.Breadcrumb) {
	if c := CurrentClient(); c != nil {
		c.AddBreadcrumb(b)
	}
}

// Flush flushes the current client, if any.
func Flush(timeout time.Duration) bool {
	if c := CurrentClient(); c != nil {
		return c.Flush(timeout)
	}
	return true
}
