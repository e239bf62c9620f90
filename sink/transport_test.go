package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crashhook/sdk-go/event"
)

func TestFileTransportRoundTrip(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "events", "events.jsonl")
	tr, err := NewFileTransport(path)
	require.NoError(err)

	att := &event.Attachment{Filename: "/tmp/dump_1.mdmp", Type: event.AttachmentMinidump, Buffer: []byte("MDMP")}
	ev := &event.Event{ID: "abc", Level: event.LevelFatal, Message: "boom", Attachments: []*event.Attachment{att}}
	require.NoError(tr.Send(ev))
	require.NoError(tr.Send(&event.Event{ID: "def"}))
	require.NoError(tr.Flush(context.Background()))
	require.NoError(tr.Close())

	evs, err := ReadEvents(path)
	require.NoError(err)
	require.Len(evs, 2)
	require.Equal("boom", evs[0].Message)
	require.Len(evs[0].Attachments, 1)
	require.Equal(event.AttachmentMinidump, evs[0].Attachments[0].Type)

	body, err := os.ReadFile(tr.AttachmentPath("abc", att))
	require.NoError(err)
	require.Equal([]byte("MDMP"), body)
	require.Equal("dump_1.mdmp", filepath.Base(tr.AttachmentPath("abc", att)))
}

func TestLogTransportLevels(t *testing.T) {
	require := require.New(t)

	core, logs := observer.New(zap.DebugLevel)
	tr := NewLogTransport(zap.New(core))

	require.NoError(tr.Send(&event.Event{Level: event.LevelFatal, Message: "boom"}))
	require.NoError(tr.Send(&event.Event{Level: event.LevelInfo}))

	entries := logs.All()
	require.Len(entries, 2)
	require.Equal(zap.ErrorLevel, entries[0].Level)
	require.Equal(zap.InfoLevel, entries[1].Level)
	require.Contains(entries[0].ContextMap(), "event")
}

func TestRedisAddr(t *testing.T) {
	require := require.New(t)

	t.Setenv(EnvRedisHost, "")
	t.Setenv(EnvRedisPort, "")
	addr, err := redisAddr()
	require.NoError(err)
	require.Equal("localhost:6379", addr)

	t.Setenv(EnvRedisHost, "redis.internal")
	t.Setenv(EnvRedisPort, "6380")
	addr, err = redisAddr()
	require.NoError(err)
	require.Equal("redis.internal:6380", addr)

	t.Setenv(EnvRedisPort, "not-a-port")
	_, err = redisAddr()
	require.Error(err)
}

func TestInfluxTransportRequiresAddr(t *testing.T) {
	t.Setenv(EnvInfluxDBAddr, "")
	_, err := NewInfluxTransport(InfluxConfig{}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestInfluxTransportPoints(t *testing.T) {
	require := require.New(t)

	tc := &testClient{}
	tr := newInfluxTransport(tc, InfluxConfig{Tags: map[string]string{"host": "h1"}}, zaptest.NewLogger(t))

	ev := &event.Event{
		Level:     event.LevelFatal,
		Platform:  "go",
		Timestamp: time.Unix(100, 0),
		Exception: []event.Exception{{
			Type:      "panic",
			Mechanism: &event.Mechanism{Type: "panic"},
		}},
	}
	require.NoError(tr.Send(ev))
	require.NoError(tr.Flush(context.Background()))

	tc.RLock()
	require.Len(tc.batchPoints, 1)
	bp := tc.batchPoints[0]
	tc.RUnlock()

	require.Equal(DefaultInfluxDatabase, bp.Database())
	require.Len(bp.Points(), 1)
	p := bp.Points()[0]
	require.Equal(DefaultInfluxMeasurement, p.Name())
	require.Equal(map[string]string{
		"host":      "h1",
		"level":     "fatal",
		"platform":  "go",
		"exception": "panic",
		"mechanism": "panic",
	}, p.Tags())
	require.True(time.Unix(100, 0).Equal(p.Time()))

	require.NoError(tr.Close())
}
