package telemetry

import (
	"sync"

	"github.com/graflow/graflow/pkg/api"
)

// DefaultRecorderBuffer is the event buffer size used when none is
// given to NewRecorder.
const DefaultRecorderBuffer = 256

// Recorder decouples event producers from sink latency: Record enqueues
// onto a bounded channel drained by a single background goroutine. When
// the buffer is full the event is delivered synchronously instead of
// being dropped, trading a momentary stall for at-least-once delivery.
type Recorder struct {
	sink   api.EventSink
	events chan api.ExecutionEvent

	closeOnce sync.Once
	done      chan struct{}

	// syncMu serializes fallback deliveries with the drain goroutine so
	// the sink never sees concurrent Record calls.
	syncMu sync.Mutex
}

var _ api.EventSink = (*Recorder)(nil)

// NewRecorder starts a recorder draining into sink. A non-positive
// buffer falls back to DefaultRecorderBuffer.
func NewRecorder(sink api.EventSink, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	r := &Recorder{
		sink:   sink,
		events: make(chan api.ExecutionEvent, buffer),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues the event for background delivery. It never returns
// an error; a full buffer degrades to synchronous delivery, which can
// hand the sink this event before older ones still queued in the
// buffer. Sinks needing strict order should sort on the event
// timestamp.
func (r *Recorder) Record(ev api.ExecutionEvent) error {
	select {
	case r.events <- ev:
	default:
		r.deliver(ev)
	}
	return nil
}

// Close stops the drain goroutine after flushing buffered events. It is
// safe to call more than once; Record must not be called after Close.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for ev := range r.events {
		r.deliver(ev)
	}
}

func (r *Recorder) deliver(ev api.ExecutionEvent) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()
	_ = r.sink.Record(ev)
}
