package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/crashhook/sdk-go/event"
)

// FileTransport appends events as JSON lines to a file. Attachment bodies
// are stored under attachments/<event id>/ next to it.
type FileTransport struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	dir string
}

var (
	_ Transport = (*FileTransport)(nil)
	_ Flusher   = (*FileTransport)(nil)
)

func NewFileTransport(path string) (*FileTransport, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating event directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileTransport{f: f, enc: json.NewEncoder(f), dir: dir}, nil
}

// AttachmentPath is where the transport stores the body of attachment a of
// event id.
func (t *FileTransport) AttachmentPath(id string, a *event.Attachment) string {
	return filepath.Join(t.dir, "attachments", id, a.Name())
}

func (t *FileTransport) Send(ev *event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, a := range ev.Attachments {
		if len(a.Buffer) == 0 {
			continue
		}
		path := t.AttachmentPath(ev.ID, a)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := renameio.WriteFile(path, a.Buffer, 0o600); err != nil {
			return fmt.Errorf("storing attachment %s: %w", a.Name(), err)
		}
	}
	return t.enc.Encode(ev)
}

func (t *FileTransport) Flush(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.f.Sync()
}

func (t *FileTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.f.Close()
}

// ReadEvents decodes every event in a file written by FileTransport.
func ReadEvents(path string) ([]*event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		out []*event.Event
		dec = json.NewDecoder(f)
	)
	for {
		ev := new(event.Event)
		err := dec.Decode(ev)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
