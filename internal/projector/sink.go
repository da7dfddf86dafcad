package projector

import (
	"context"
	"fmt"
	"sync"

	"github.com/openpredict/predictd/internal/domain"
)

// Sink is a buffered channel bridge between the ledger engine and the
// projector. The engine emits into it synchronously under its lock; the
// projector drains it on its own goroutine so read-model writes never stall
// the ledger.
type Sink struct {
	mu     sync.RWMutex
	events chan domain.Event
	closed bool
}

// NewSink creates a Sink with the given buffer size.
func NewSink(buffer int) *Sink {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Sink{events: make(chan domain.Event, buffer)}
}

// Emit enqueues an event, blocking when the buffer is full so no event is
// ever dropped between the engine and the projector. After Close it fails
// instead of enqueueing.
func (s *Sink) Emit(ctx context.Context, ev domain.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("projector: emit %s: sink closed", ev.Kind)
	}

	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("projector: emit %s: %w", ev.Kind, ctx.Err())
	}
}

// Events returns the receive side of the bridge for the projector loop.
func (s *Sink) Events() <-chan domain.Event {
	return s.events
}

// Close closes the bridge, waiting for in-flight emits to land first.
// Subsequent Emit calls fail; calling Close again is a no-op.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
