// Package integration reports panics, and memory faults translated into
// panics, to the current sink client as fatal events carrying a minidump.
//
// Add a PanicIntegration to sink.Options.Integrations. Its Setup chains a
// process-wide panic hook exactly once, however many clients are built.
// The hook finds the integration through the current client, so events
// always go to whichever client is bound when the panic happens.
package integration

import (
	"errors"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/fault"
	"github.com/crashhook/sdk-go/minidump"
	"github.com/crashhook/sdk-go/panics"
	"github.com/crashhook/sdk-go/sink"
	"github.com/crashhook/sdk-go/stacktrace"
)

const (
	// Name identifies the integration on a client.
	Name = "panic"

	// UnknownPayload is the exception value used when a panic payload is
	// neither a string nor an error.
	UnknownPayload = "unrecognized panic payload"

	exceptionType = "panic"
	mechanismType = "panic"
)

// Extractor may build the whole event for a panic. Returning nil passes
// the panic on to the next extractor, and finally to the default builder.
type Extractor func(info *panics.Info) *event.Event

type PanicIntegration struct {
	dumper     minidump.Writer
	logger     *zap.Logger
	extractors []Extractor
}

var _ sink.Integration = (*PanicIntegration)(nil)

type Option func(*PanicIntegration)

// WithDumper replaces the platform minidump writer.
func WithDumper(w minidump.Writer) Option {
	return func(p *PanicIntegration) {
		p.dumper = w
	}
}

// WithDumpConfig configures the platform minidump writer.
func WithDumpConfig(cfg minidump.Config) Option {
	return func(p *PanicIntegration) {
		p.dumper = minidump.New(cfg)
	}
}

// WithLogger sets the logger. By default the client's logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(p *PanicIntegration) {
		p.logger = l
	}
}

func New(opts ...Option) *PanicIntegration {
	p := &PanicIntegration{}
	for _, o := range opts {
		o(p)
	}
	if p.dumper == nil {
		p.dumper = minidump.New(minidump.DefaultConfig())
	}
	return p
}

// AddExtractor appends fn to the extractor chain. Extractors must be added
// before the integration is handed to a client.
func (p *PanicIntegration) AddExtractor(fn Extractor) *PanicIntegration {
	p.extractors = append(p.extractors, fn)
	return p
}

func (p *PanicIntegration) Name() string {
	return Name
}

// Setup installs the process-wide panic hook if it isn't installed yet.
func (p *PanicIntegration) Setup(opts *sink.Options) {
	if p.logger == nil {
		p.logger = opts.Logger
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	install(p.logger)
}

// MessageFromPanic returns the text of a panic payload.
func MessageFromPanic(payload interface{}) string {
	switch v := payload.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return UnknownPayload
	}
}

// EventFromPanic builds the event for a panic. The first extractor that
// returns an event wins and its event is returned as is.
func (p *PanicIntegration) EventFromPanic(info *panics.Info) *event.Event {
	for _, fn := range p.extractors {
		if ev := fn(info); ev != nil {
			return ev
		}
	}

	return &event.Event{
		Level: event.LevelFatal,
		Exception: []event.Exception{{
			Type:  exceptionType,
			Value: MessageFromPanic(info.Payload),
			Mechanism: &event.Mechanism{
				Type:    mechanismType,
				Handled: event.Bool(false),
			},
			Stacktrace: stacktrace.Capture(1),
		}},
	}
}

// handle reports info to c. It runs on the panicking goroutine and only
// blocks in the final bounded flush.
func (p *PanicIntegration) handle(c *sink.Client, info *panics.Info) {
	source := sourcePanic
	if info.Payload == fault.Message {
		source = sourceSignal
	}
	panicsTotal.WithLabelValues(source).Inc()

	att := p.captureDump()
	ev := p.EventFromPanic(info)

	id := c.CaptureEventWith(ev, func(s *sink.Scope) {
		if att != nil {
			s.AddAttachment(att)
		}
	})
	p.logger.Info("reported panic", zap.String("event_id", id), zap.String("source", source))

	c.Flush(0)
}

func (p *PanicIntegration) captureDump() *event.Attachment {
	path, buf, err := p.dumper.Capture()
	if err != nil {
		result := resultFailed
		if errors.Is(err, minidump.ErrUnsupported) {
			result = resultUnsupported
		}
		minidumpsTotal.WithLabelValues(result).Inc()
		p.logger.Warn("failed to capture minidump", zap.Error(err))
		return nil
	}
	if len(buf) == 0 {
		minidumpsTotal.WithLabelValues(resultFailed).Inc()
		p.logger.Warn("captured empty minidump", zap.String("path", path))
		return nil
	}

	minidumpsTotal.WithLabelValues(resultCaptured).Inc()
	p.logger.Info("captured minidump",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(len(buf)))))

	return &event.Attachment{
		Filename: path,
		Type:     event.AttachmentMinidump,
		Buffer:   buf,
	}
}
