// Package plugin embeds crash reporting in a host application: it builds
// the sink client with the panic integration in front, bridges events and
// breadcrumbs from the host's script side, and flushes on exit.
package plugin

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/integration"
	"github.com/crashhook/sdk-go/sink"
)

const (
	Name = "crashhook"

	// PlatformJavaScript marks events that came in through the bridge.
	PlatformJavaScript = "javascript"

	// ExitFlushTimeout bounds the flush run when the host exits.
	ExitFlushTimeout = 5 * time.Second

	CommandEvent      = "event"
	CommandBreadcrumb = "breadcrumb"
)

var ErrUnknownCommand = errors.New("unknown command")

//go:embed inject.js
var injectScript string

type ScriptOptions struct {
	// Inject makes InitScript return the bridge bootstrap script.
	Inject bool
	// Debug makes the injected script log bridge failures to the console.
	Debug bool
}

type Options struct {
	Script ScriptOptions
	Client sink.Options

	// Panic configures the integration inserted when
	// Client.DefaultIntegrations is set.
	Panic []integration.Option
}

func DefaultOptions() Options {
	return Options{
		Script: ScriptOptions{Inject: true},
		Client: sink.Options{DefaultIntegrations: true},
	}
}

type Plugin struct {
	client *sink.Client
	script ScriptOptions
	logger *zap.Logger
}

// Init builds and binds the sink client. With DefaultIntegrations set, a
// panic integration is inserted ahead of the configured integrations so
// that it is set up first.
func Init(opts Options) (*Plugin, error) {
	copts := opts.Client
	if copts.DefaultIntegrations {
		integrations := make([]sink.Integration, 0, len(copts.Integrations)+1)
		integrations = append(integrations, integration.New(opts.Panic...))
		copts.Integrations = append(integrations, copts.Integrations...)
	}

	client, err := sink.Init(copts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sink client: %w", err)
	}

	return &Plugin{
		client: client,
		script: opts.Script,
		logger: client.Logger().With(zap.String("plugin", Name)),
	}, nil
}

func (p *Plugin) Client() *sink.Client {
	return p.client
}

// Event captures an event handed over by the host's script side.
func (p *Plugin) Event(ev *event.Event) string {
	if ev == nil {
		return ""
	}
	ev.Platform = PlatformJavaScript
	return p.client.CaptureEvent(ev)
}

// Breadcrumb records a breadcrumb handed over by the host's script side.
func (p *Plugin) Breadcrumb(b *event.Breadcrumb) {
	p.client.AddBreadcrumb(b)
}

// Invoke dispatches a bridge command with a JSON payload of the form
// {"event": {...}} or {"breadcrumb": {...}}. The event command returns
// the event id.
func (p *Plugin) Invoke(cmd string, payload []byte) (interface{}, error) {
	switch cmd {
	case CommandEvent:
		var args struct {
			Event *event.Event `json:"event"`
		}
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", cmd, err)
		}
		if args.Event == nil {
			return nil, fmt.Errorf("%s payload carries no event", cmd)
		}
		return p.Event(args.Event), nil

	case CommandBreadcrumb:
		var args struct {
			Breadcrumb *event.Breadcrumb `json:"breadcrumb"`
		}
		if err := json.Unmarshal(payload, &args); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", cmd, err)
		}
		if args.Breadcrumb == nil {
			return nil, fmt.Errorf("%s payload carries no breadcrumb", cmd)
		}
		p.Breadcrumb(args.Breadcrumb)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

// InitScript returns the script the host should run in its script context
// before any page code, or "" when injection is disabled.
func (p *Plugin) InitScript() string {
	if !p.script.Inject {
		return ""
	}
	return strings.Replace(injectScript, "__DEBUG__", strconv.FormatBool(p.script.Debug), 1)
}

// OnExit gives pending events ExitFlushTimeout to leave the process. Call
// it from the host's exit handler.
func (p *Plugin) OnExit() bool {
	ok := p.client.Flush(ExitFlushTimeout)
	if !ok {
		p.logger.Warn("pending events not flushed before exit", zap.Duration("timeout", ExitFlushTimeout))
	}
	return ok
}

func (p *Plugin) Close() error {
	return p.client.Close()
}
