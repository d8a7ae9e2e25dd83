package telemetry

import (
	"sync"

	"github.com/graflow/graflow/pkg/api"
)

// MemorySink keeps events in memory, in arrival order. Useful for tests
// and for the CLI's run summary.
type MemorySink struct {
	mu     sync.Mutex
	events []api.ExecutionEvent
}

var _ api.EventSink = (*MemorySink)(nil)

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ev api.ExecutionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []api.ExecutionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.ExecutionEvent, len(s.events))
	copy(out, s.events)
	return out
}
