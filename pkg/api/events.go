package api

import "time"

// EventLevel classifies an ExecutionEvent.
type EventLevel string

const (
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// ExecutionEvent is the flat record shape delivered to an EventSink.
// Events are produced, never consumed, by the engine.
type ExecutionEvent struct {
	At       time.Time      `json:"at"`
	Level    EventLevel     `json:"level"`
	RunID    string         `json:"runId,omitempty"`
	NodeID   string         `json:"nodeId,omitempty"`
	NodeType NodeType       `json:"nodeType,omitempty"`
	Message  string         `json:"message"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// EventSink receives execution events for storage and display.
// Implementations must tolerate being called from a background
// goroutine; errors are the sink's problem, they never fail a run.
type EventSink interface {
	Record(event ExecutionEvent) error
}

// RunInfo identifies a single flow run in observer callbacks.
type RunInfo struct {
	RunID    string
	TaskID   string
	TaskType string
}

// DataTransfer describes one value copied along a data edge.
type DataTransfer struct {
	SourceNode   string
	SourceHandle string
	TargetNode   string
	TargetHandle string
	Value        any
}

// APIRequest describes an outbound API call about to be executed.
type APIRequest struct {
	NodeID  string
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// APIResponse describes the outcome of a completed outbound API call.
type APIResponse struct {
	NodeID  string
	Method  string
	URL     string
	Status  int
	Body    any
	Latency time.Duration
}
