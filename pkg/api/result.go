package api

// RunResult is what a caller gets back from ExecuteFlow. Callers always
// receive a well-formed result, never a raw panic or unhandled error.
type RunResult struct {
	RunID   string `json:"runId,omitempty"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`

	// Context is the final run-scoped key/value state. It is exposed
	// for diagnostics and tests; treat it as read-only.
	Context map[string]any `json:"-"`
}
