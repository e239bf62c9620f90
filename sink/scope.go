package sink

import (
	"sync"

	"github.com/crashhook/sdk-go/event"
)

// Scope holds data merged into every event captured through it.
type Scope struct {
	mu sync.RWMutex

	maxBreadcrumbs int
	breadcrumbs    []*event.Breadcrumb
	tags           map[string]string
	extra          map[string]any
	attachments    []*event.Attachment
}

// NewScope returns an empty scope keeping at most maxBreadcrumbs
// breadcrumbs. A negative bound disables breadcrumbs.
func NewScope(maxBreadcrumbs int) *Scope {
	return &Scope{
		maxBreadcrumbs: maxBreadcrumbs,
		tags:           make(map[string]string),
		extra:          make(map[string]any),
	}
}

// AddBreadcrumb appends b, evicting the oldest breadcrumb when full.
func (s *Scope) AddBreadcrumb(b *event.Breadcrumb) {
	if s.maxBreadcrumbs <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.breadcrumbs = append(s.breadcrumbs, b)
	if over := len(s.breadcrumbs) - s.maxBreadcrumbs; over > 0 {
		s.breadcrumbs = append(s.breadcrumbs[:0:0], s.breadcrumbs[over:]...)
	}
}

func (s *Scope) Breadcrumbs() []*event.Breadcrumb {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*event.Breadcrumb(nil), s.breadcrumbs...)
}

func (s *Scope) ClearBreadcrumbs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.breadcrumbs = nil
}

func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tags[key] = value
}

func (s *Scope) SetExtra(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extra[key] = value
}

// AddAttachment attaches a to events captured with this scope.
func (s *Scope) AddAttachment(a *event.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attachments = append(s.attachments, a)
}

func (s *Scope) Attachments() []*event.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*event.Attachment(nil), s.attachments...)
}

// Clone returns a copy of s that can be modified independently.
func (s *Scope) Clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := NewScope(s.maxBreadcrumbs)
	c.breadcrumbs = append(c.breadcrumbs, s.breadcrumbs...)
	c.attachments = append(c.attachments, s.attachments...)
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.extra {
		c.extra[k] = v
	}
	return c
}

// ApplyToEvent merges the scope into ev. Values already set on the event
// win over scope values.
func (s *Scope) ApplyToEvent(ev *event.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.tags) > 0 {
		tags := make(map[string]string, len(s.tags)+len(ev.Tags))
		for k, v := range s.tags {
			tags[k] = v
		}
		for k, v := range ev.Tags {
			tags[k] = v
		}
		ev.Tags = tags
	}

	if len(s.extra) > 0 {
		extra := make(map[string]any, len(s.extra)+len(ev.Extra))
		for k, v := range s.extra {
			extra[k] = v
		}
		for k, v := range ev.Extra {
			extra[k] = v
		}
		ev.Extra = extra
	}

	if len(s.breadcrumbs) > 0 {
		crumbs := append(append([]*event.Breadcrumb(nil), s.breadcrumbs...), ev.Breadcrumbs...)
		if over := len(crumbs) - s.maxBreadcrumbs; s.maxBreadcrumbs > 0 && over > 0 {
			crumbs = crumbs[over:]
		}
		ev.Breadcrumbs = crumbs
	}

	ev.Attachments = append(ev.Attachments, s.attachments...)
}
