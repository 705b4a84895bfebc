package publish

import (
	"context"
	"sync"

	"github.com/saturn72/efaudit/internal/capture"
)

// Recorder is the direct in-process sink: it maps each record into a Message
// and keeps it in memory for introspection (the HTTP surface reads it) and
// for tests.
type Recorder struct {
	mu       sync.RWMutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, record *capture.AuditRecord) error {
	msg, err := NewMessage(record)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

// Messages returns a copy of all recorded messages in publish order.
func (r *Recorder) Messages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message{}, r.messages...)
}

// Clear drops all recorded messages.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
