package event

import (
	"encoding/json"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
)

// Attachment is a binary blob sent alongside an event. Buffer is never
// serialized with the event itself.
type Attachment struct {
	Filename string
	Type     AttachmentType
	Buffer   []byte
}

type attachmentJSON struct {
	Filename string         `json:"filename"`
	Type     AttachmentType `json:"attachment_type"`
	Size     int            `json:"size"`
}

func (a *Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal(attachmentJSON{
		Filename: a.Filename,
		Type:     a.Type,
		Size:     len(a.Buffer),
	})
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var aj attachmentJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	a.Filename = aj.Filename
	a.Type = aj.Type
	return nil
}

// Name returns the base name of the attachment's file.
func (a *Attachment) Name() string {
	return filepath.Base(a.Filename)
}

func (a *Attachment) MarshalLogObject(oe zapcore.ObjectEncoder) error {
	oe.AddString("filename", a.Filename)
	oe.AddString("type", string(a.Type))
	oe.AddInt("size", len(a.Buffer))
	return nil
}

// Breadcrumb is a timestamped note recorded before an event and attached
// to the events that follow it.
type Breadcrumb struct {
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     Level          `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (b *Breadcrumb) MarshalLogObject(oe zapcore.ObjectEncoder) error {
	if b.Type != "" {
		oe.AddString("type", b.Type)
	}
	if b.Category != "" {
		oe.AddString("category", b.Category)
	}
	oe.AddString("message", b.Message)
	if b.Level != "" {
		oe.AddString("level", string(b.Level))
	}
	if len(b.Data) > 0 {
		if err := oe.AddReflected("data", b.Data); err != nil {
			return err
		}
	}
	oe.AddTime("timestamp", b.Timestamp)
	return nil
}
