package plugin

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/integration"
	"github.com/crashhook/sdk-go/minidump"
	"github.com/crashhook/sdk-go/sink"
	"github.com/crashhook/sdk-go/sinktest"
)

type namedIntegration string

func (n namedIntegration) Name() string        { return string(n) }
func (n namedIntegration) Setup(*sink.Options) {}

func newPlugin(t *testing.T, defaults bool, extra ...sink.Integration) (*Plugin, *sinktest.Transport) {
	t.Helper()

	tr := sinktest.NewTransport()
	opts := DefaultOptions()
	opts.Client = sinktest.Options(t, tr)
	opts.Client.DefaultIntegrations = defaults
	opts.Client.Integrations = extra
	opts.Panic = []integration.Option{
		integration.WithDumper(minidump.WriterFunc(func() (string, []byte, error) {
			return "", nil, minidump.ErrUnsupported
		})),
	}

	p, err := Init(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Close()
		sink.Bind(nil)
	})
	return p, tr
}

func TestInitPutsPanicIntegrationFirst(t *testing.T) {
	require := require.New(t)

	p, _ := newPlugin(t, true, namedIntegration("other"))

	integrations := p.Client().Options().Integrations
	require.Len(integrations, 2)
	require.Equal(integration.Name, integrations[0].Name())
	require.Equal("other", integrations[1].Name())
	require.IsType(&integration.PanicIntegration{}, p.Client().Integration(integration.Name))
	require.True(integration.Installed())
	require.Same(p.Client(), sink.CurrentClient())
}

func TestInitWithoutDefaults(t *testing.T) {
	require := require.New(t)

	p, _ := newPlugin(t, false, namedIntegration("other"))

	require.Len(p.Client().Options().Integrations, 1)
	require.Nil(p.Client().Integration(integration.Name))
}

func TestEventIsMarkedJavaScript(t *testing.T) {
	require := require.New(t)

	p, tr := newPlugin(t, false)

	id := p.Event(&event.Event{Platform: "go", Message: "from the page"})
	require.NotEmpty(id)
	require.True(p.OnExit())

	evs := tr.Events()
	require.Len(evs, 1)
	require.Equal(PlatformJavaScript, evs[0].Platform)
	require.Equal(id, evs[0].ID)
}

func TestInvokeRoutesCommands(t *testing.T) {
	require := require.New(t)

	p, tr := newPlugin(t, false)

	_, err := p.Invoke(CommandBreadcrumb, []byte(`{"breadcrumb": {"message": "clicked", "category": "ui"}}`))
	require.NoError(err)

	id, err := p.Invoke(CommandEvent, []byte(`{"event": {"level": "error", "message": "TypeError"}}`))
	require.NoError(err)
	require.NotEmpty(id)

	require.True(p.OnExit())

	evs := tr.Events()
	require.Len(evs, 1)
	require.Equal(id, evs[0].ID)
	require.Equal(event.LevelError, evs[0].Level)
	require.Equal(PlatformJavaScript, evs[0].Platform)
	require.Len(evs[0].Breadcrumbs, 1)
	require.Equal("clicked", evs[0].Breadcrumbs[0].Message)
}

func TestInvokeRejectsBadInput(t *testing.T) {
	require := require.New(t)

	p, _ := newPlugin(t, false)

	_, err := p.Invoke("shutdown", nil)
	require.True(errors.Is(err, ErrUnknownCommand))

	_, err = p.Invoke(CommandEvent, []byte(`{`))
	require.Error(err)

	_, err = p.Invoke(CommandEvent, []byte(`{}`))
	require.Error(err)

	_, err = p.Invoke(CommandBreadcrumb, []byte(`{"event": {}}`))
	require.Error(err)
}

func TestOnExitReturnsPromptlyWhenIdle(t *testing.T) {
	require := require.New(t)

	p, _ := newPlugin(t, false)

	start := time.Now()
	require.True(p.OnExit())
	require.Less(time.Since(start), time.Second)
}

func TestInitScript(t *testing.T) {
	require := require.New(t)

	p, _ := newPlugin(t, false)
	script := p.InitScript()
	require.Contains(script, "var debug = false;")
	require.False(strings.Contains(script, "__DEBUG__"))

	p.script = ScriptOptions{Inject: true, Debug: true}
	require.Contains(p.InitScript(), "var debug = true;")

	p.script.Inject = false
	require.Empty(p.InitScript())
}
