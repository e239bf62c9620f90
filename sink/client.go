package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crashhook/sdk-go/event"
)

// envelope is a queue entry: an event, or a flush marker when flushed is
// set.
type envelope struct {
	ev *event.Event

	ctx     context.Context
	flushed chan struct{}
	err     error
}

type Client struct {
	options Options
	logger  *zap.Logger

	scope        *Scope
	integrations map[string]Integration
	stats        *stats

	queue   chan *envelope
	doneCh  chan struct{}
	wg      sync.WaitGroup
	closing sync.Once
}

// NewClient creates an unbound client and runs integration setup.
func NewClient(opts Options) (*Client, error) {
	opts.setDefaults()
	if len(opts.Transports) == 0 {
		return nil, fmt.Errorf("no transports configured")
	}

	c := &Client{
		options:      opts,
		logger:       opts.Logger,
		scope:        NewScope(opts.MaxBreadcrumbs),
		integrations: make(map[string]Integration, len(opts.Integrations)),
		stats:        newStats(),
		queue:        make(chan *envelope, opts.QueueSize),
		doneCh:       make(chan struct{}),
	}

	for _, integ := range opts.Integrations {
		name := integ.Name()
		if _, ok := c.integrations[name]; ok {
			c.logger.Debug("skipping duplicate integration", zap.String("integration", name))
			continue
		}
		integ.Setup(&c.options)
		c.integrations[name] = integ
		c.logger.Debug("integration installed", zap.String("integration", name))
	}

	c.wg.Add(1)
	go c.background()
	return c, nil
}

// Options returns the options the client was built with, after defaults.
func (c *Client) Options() Options {
	return c.options
}

// Integration returns the installed integration with the given name.
func (c *Client) Integration(name string) Integration {
	return c.integrations[name]
}

// Scope returns the client's root scope.
func (c *Client) Scope() *Scope {
	return c.scope
}

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// CaptureEvent queues ev and returns its id. The event is dropped when the
// queue is full or the client is closed.
func (c *Client) CaptureEvent(ev *event.Event) string {
	return c.CaptureEventWith(ev, nil)
}

// CaptureEventWith is CaptureEvent with a scope that applies to ev alone:
// configure receives a copy of the client scope.
func (c *Client) CaptureEventWith(ev *event.Event, configure func(s *Scope)) string {
	if ev == nil {
		return ""
	}

	scope := c.scope.Clone()
	if configure != nil {
		configure(scope)
	}
	c.prepare(ev, scope)

	if bs := c.options.BeforeSend; bs != nil {
		if ev = bs(ev); ev == nil {
			c.stats.dropped.Inc(1)
			return ""
		}
	}

	c.stats.captured.Inc(1)
	if !c.enqueue(&envelope{ev: ev}) {
		c.stats.dropped.Inc(1)
		c.logger.Warn("event queue unavailable; dropping event", zap.String("event_id", ev.ID))
	}
	return ev.ID
}

// AddBreadcrumb records b on the client scope.
func (c *Client) AddBreadcrumb(b *event.Breadcrumb) {
	if b == nil || c.options.MaxBreadcrumbs < 0 {
		return
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}
	c.scope.AddBreadcrumb(b)
	c.stats.breadcrumbs.Inc(1)
}

func (c *Client) prepare(ev *event.Event, scope *Scope) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Platform == "" {
		ev.Platform = PlatformGo
	}
	if ev.Release == "" {
		ev.Release = c.options.Release
	}
	if ev.Dist == "" {
		ev.Dist = c.options.Dist
	}
	if ev.Environment == "" {
		ev.Environment = c.options.Environment
	}
	if ev.ServerName == "" {
		ev.ServerName = c.options.ServerName
	}
	scope.ApplyToEvent(ev)
}

func (c *Client) enqueue(env *envelope) bool {
	select {
	case <-c.doneCh:
		return false
	default:
	}
	select {
	case c.queue <- env:
		return true
	default:
		return false
	}
}

// Flush waits until every event queued before the call has been handed to
// the transports and flushable transports have drained, or until timeout.
// A timeout of zero or less means the client's ShutdownTimeout.
func (c *Client) Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = c.options.ShutdownTimeout
	}

	start := time.Now()
	defer c.stats.flush.UpdateSince(start)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	env := &envelope{ctx: ctx, flushed: make(chan struct{})}
	select {
	case c.queue <- env:
	case <-ctx.Done():
		return false
	case <-c.doneCh:
		return false
	}

	select {
	case <-env.flushed:
		if env.err != nil {
			c.logger.Warn("flush failed", zap.Error(env.err))
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

// Close flushes pending events, stops the queue and closes all transports.
// The client is unbound if it is the current one.
func (c *Client) Close() error {
	var err *multierror.Error

	c.closing.Do(func() {
		if !c.Flush(0) {
			err = multierror.Append(err, fmt.Errorf("flush timed out after %s", c.options.ShutdownTimeout))
		}

		close(c.doneCh)
		c.wg.Wait()

		for _, t := range c.options.Transports {
			err = multierror.Append(err, t.Close())
		}
		current.CompareAndSwap(c, nil)
	})

	return err.ErrorOrNil()
}

func (c *Client) background() {
	defer c.wg.Done()

	for {
		select {
		case env := <-c.queue:
			c.process(env)
		case <-c.doneCh:
			// drain what was queued before close.
			for {
				select {
				case env := <-c.queue:
					c.process(env)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) process(env *envelope) {
	if env.flushed != nil {
		env.err = c.flushTransports(env.ctx)
		close(env.flushed)
		return
	}

	for _, t := range c.options.Transports {
		if err := t.Send(env.ev); err != nil {
			c.stats.failed.Inc(1)
			c.logger.Warn("failed to send event", zap.String("event_id", env.ev.ID), zap.Error(err))
			continue
		}
		c.stats.sent.Inc(1)
	}
}

func (c *Client) flushTransports(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range c.options.Transports {
		f, ok := t.(Flusher)
		if !ok {
			continue
		}
		g.Go(func() error {
			return f.Flush(ctx)
		})
	}
	return g.Wait()
}
