package event

import (
	"time"

	"go.uber.org/zap/zapcore"
)

type (
	Level          string
	AttachmentType string
)

const (
	LevelDebug   = Level("debug")
	LevelInfo    = Level("info")
	LevelWarning = Level("warning")
	LevelError   = Level("error")
	LevelFatal   = Level("fatal")

	AttachmentPlain    = AttachmentType("event.attachment")
	AttachmentMinidump = AttachmentType("event.minidump")
)

// Event is a structured diagnostic record handed to a sink. Events built
// from a panic carry exactly one Exception.
type Event struct {
	ID          string            `json:"event_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Level       Level             `json:"level,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	Message     string            `json:"message,omitempty"`
	Logger      string            `json:"logger,omitempty"`
	Release     string            `json:"release,omitempty"`
	Dist        string            `json:"dist,omitempty"`
	Environment string            `json:"environment,omitempty"`
	ServerName  string            `json:"server_name,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Extra       map[string]any    `json:"extra,omitempty"`
	Exception   []Exception       `json:"exception,omitempty"`
	Breadcrumbs []*Breadcrumb     `json:"breadcrumbs,omitempty"`
	Attachments []*Attachment     `json:"attachments,omitempty"`
}

type Exception struct {
	Type       string      `json:"type"`
	Value      string      `json:"value,omitempty"`
	Mechanism  *Mechanism  `json:"mechanism,omitempty"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// Mechanism describes how an exception was captured. Handled is false for
// anything that reached a crash hook.
type Mechanism struct {
	Type    string         `json:"type"`
	Handled *bool          `json:"handled,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

type Frame struct {
	Function string `json:"function,omitempty"`
	Module   string `json:"module,omitempty"`
	Filename string `json:"filename,omitempty"`
	AbsPath  string `json:"abs_path,omitempty"`
	Lineno   int    `json:"lineno,omitempty"`
	InApp    bool   `json:"in_app"`
}

// Bool returns a pointer to b, for optional fields such as Mechanism.Handled.
func Bool(b bool) *bool {
	return &b
}

func (e *Event) MarshalLogObject(oe zapcore.ObjectEncoder) error {
	oe.AddString("event_id", e.ID)
	oe.AddString("level", string(e.Level))
	if e.Platform != "" {
		oe.AddString("platform", e.Platform)
	}
	if e.Message != "" {
		oe.AddString("message", e.Message)
	}
	if e.Release != "" {
		oe.AddString("release", e.Release)
	}
	if e.Environment != "" {
		oe.AddString("environment", e.Environment)
	}
	if !e.Timestamp.IsZero() {
		oe.AddTime("timestamp", e.Timestamp)
	}
	if len(e.Tags) > 0 {
		if err := oe.AddReflected("tags", e.Tags); err != nil {
			return err
		}
	}
	if len(e.Exception) > 0 {
		err := oe.AddArray("exception", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for i := range e.Exception {
				if err := ae.AppendObject(&e.Exception[i]); err != nil {
					return err
				}
			}
			return nil
		}))
		if err != nil {
			return err
		}
	}
	oe.AddInt("breadcrumbs", len(e.Breadcrumbs))
	if len(e.Attachments) > 0 {
		return oe.AddArray("attachments", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for _, a := range e.Attachments {
				if err := ae.AppendObject(a); err != nil {
					return err
				}
			}
			return nil
		}))
	}
	return nil
}

func (x *Exception) MarshalLogObject(oe zapcore.ObjectEncoder) error {
	oe.AddString("type", x.Type)
	oe.AddString("value", x.Value)
	if m := x.Mechanism; m != nil {
		oe.AddString("mechanism", m.Type)
		if m.Handled != nil {
			oe.AddBool("handled", *m.Handled)
		}
	}
	if x.Stacktrace != nil {
		oe.AddInt("frames", len(x.Stacktrace.Frames))
		if n := len(x.Stacktrace.Frames); n > 0 {
			top := x.Stacktrace.Frames[n-1]
			oe.AddString("culprit", top.Function)
		}
	}
	return nil
}
