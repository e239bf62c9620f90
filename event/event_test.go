package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func crashEvent() *Event {
	return &Event{
		ID:        "0f8fad5bd9cb469fa16570867728950e",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Level:     LevelFatal,
		Platform:  "go",
		Tags:      map[string]string{"component": "worker"},
		Exception: []Exception{{
			Type:      "panic",
			Value:     "boom",
			Mechanism: &Mechanism{Type: "panic", Handled: Bool(false)},
			Stacktrace: &Stacktrace{Frames: []Frame{
				{Function: "main", Module: "main", InApp: true},
				{Function: "explode", Module: "example.com/app/worker", InApp: true},
			}},
		}},
		Attachments: []*Attachment{{
			Filename: "/tmp/dump_42.mdmp",
			Type:     AttachmentMinidump,
			Buffer:   []byte("MDMP...."),
		}},
	}
}

func TestEventLogObject(t *testing.T) {
	require := require.New(t)

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(crashEvent().MarshalLogObject(enc))

	require.Equal("fatal", enc.Fields["level"])
	require.Equal("go", enc.Fields["platform"])
	require.Equal(0, enc.Fields["breadcrumbs"])

	exc, ok := enc.Fields["exception"].([]interface{})
	require.True(ok)
	require.Len(exc, 1)

	first := exc[0].(map[string]interface{})
	require.Equal("panic", first["type"])
	require.Equal("boom", first["value"])
	require.Equal(false, first["handled"])
	require.Equal("explode", first["culprit"])

	atts := enc.Fields["attachments"].([]interface{})
	require.Len(atts, 1)
	require.Equal(8, atts[0].(map[string]interface{})["size"])
}

func TestAttachmentJSONOmitsBuffer(t *testing.T) {
	require := require.New(t)

	b, err := json.Marshal(crashEvent())
	require.NoError(err)
	require.NotContains(string(b), "TURNUC4u") // base64 of the buffer
	require.Contains(string(b), `"attachment_type":"event.minidump"`)
	require.Contains(string(b), `"size":8`)

	var back Event
	require.NoError(json.Unmarshal(b, &back))
	require.Len(back.Attachments, 1)
	require.Equal("dump_42.mdmp", back.Attachments[0].Name())
	require.Nil(back.Attachments[0].Buffer)
	require.False(*back.Exception[0].Mechanism.Handled)
}

func TestBreadcrumbLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	b := &Breadcrumb{Category: "ui.click", Message: "pressed", Timestamp: time.Now()}
	require.NoError(t, b.MarshalLogObject(enc))
	require.Equal(t, "ui.click", enc.Fields["category"])
	require.NotContains(t, enc.Fields, "type")
}
