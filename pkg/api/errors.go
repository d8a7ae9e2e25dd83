package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoStartingNode is returned when no condition node flagged as a
// starting point matches the task's type. There is deliberately no
// fallback to an arbitrary node: running the wrong workflow silently
// is worse than failing.
var ErrNoStartingNode = errors.New("no starting node matches task type")

// AmbiguousStartError reports that more than one starting node matched
// the task's type, which is a graph configuration error.
type AmbiguousStartError struct {
	TaskType string
	NodeIDs  []string
}

func (e *AmbiguousStartError) Error() string {
	return fmt.Sprintf("multiple starting nodes match task type %q: %s",
		e.TaskType, strings.Join(e.NodeIDs, ", "))
}

// CycleError reports that control-flow traversal revisited a node that
// is still executing, i.e. the execution links contain a cycle.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("execution cycle detected at node %q", e.NodeID)
}

// APICallError is the one error node executors are allowed to surface
// to the orchestrator. It combines the HTTP status, any detail parsed
// from the response body, and the request that failed, so the run-level
// error message attributes the failure to a specific call.
type APICallError struct {
	Status      int
	StatusText  string
	Method      string
	URL         string
	Detail      string
	BodyPreview string
}

func (e *APICallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "API call failed: %d %s", e.Status, e.StatusText)
	if e.Detail != "" {
		fmt.Fprintf(&b, " - %s", e.Detail)
	}
	fmt.Fprintf(&b, " (%s %s)", e.Method, e.URL)
	if e.BodyPreview != "" {
		fmt.Fprintf(&b, ": %s", e.BodyPreview)
	}
	return b.String()
}

// AsAPICallError returns the APICallError wrapped in err, if any.
func AsAPICallError(err error) (*APICallError, bool) {
	var apiErr *APICallError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ValidationFailure builds the structured {success:false, error} value
// node executors return on a recoverable, node-local failure such as a
// missing required parameter. It is a value, not an error: validation
// failures do not abort the run.
func ValidationFailure(format string, args ...any) map[string]any {
	return map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	}
}
