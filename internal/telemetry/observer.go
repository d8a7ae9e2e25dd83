package telemetry

import (
	"context"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

// SinkObserver converts engine observer callbacks into flat
// ExecutionEvents and records them on a sink. All payload values pass
// through Sanitize first, so a sink never sees raw secrets.
//
// Sink errors are swallowed: telemetry failures must never fail a run.
type SinkObserver struct {
	sink api.EventSink
}

// NewSinkObserver wraps sink in an Observer. A nil sink yields a no-op
// observer.
func NewSinkObserver(sink api.EventSink) api.Observer {
	if sink == nil {
		return api.NoopObserver{}
	}
	return &SinkObserver{sink: sink}
}

func (o *SinkObserver) record(ev api.ExecutionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_ = o.sink.Record(ev)
}

func (o *SinkObserver) OnRunStart(ctx context.Context, run api.RunInfo) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelInfo,
		RunID:   run.RunID,
		Message: "run started",
		Payload: map[string]any{
			"taskId":   run.TaskID,
			"taskType": run.TaskType,
		},
	})
}

func (o *SinkObserver) OnRunEnd(ctx context.Context, run api.RunInfo, result api.RunResult) {
	level := api.LevelInfo
	message := "run finished"
	payload := map[string]any{
		"success": result.Success,
	}
	if result.Success {
		payload["result"] = Sanitize(result.Result)
	} else {
		level = api.LevelError
		message = "run failed"
		payload["error"] = truncateString(result.Error)
	}
	o.record(api.ExecutionEvent{
		Level:   level,
		RunID:   run.RunID,
		Message: message,
		Payload: payload,
	})
}

func (o *SinkObserver) OnNodeStart(ctx context.Context, run api.RunInfo, node api.Node) {
	o.record(api.ExecutionEvent{
		Level:    api.LevelInfo,
		RunID:    run.RunID,
		NodeID:   node.ID,
		NodeType: node.Type,
		Message:  "node started",
	})
}

func (o *SinkObserver) OnNodeEnd(ctx context.Context, run api.RunInfo, node api.Node, output any, d time.Duration) {
	o.record(api.ExecutionEvent{
		Level:    api.LevelInfo,
		RunID:    run.RunID,
		NodeID:   node.ID,
		NodeType: node.Type,
		Message:  "node finished",
		Payload: map[string]any{
			"output":     Sanitize(output),
			"durationMs": d.Milliseconds(),
		},
	})
}

func (o *SinkObserver) OnDataTransfer(ctx context.Context, run api.RunInfo, t api.DataTransfer) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelInfo,
		RunID:   run.RunID,
		NodeID:  t.SourceNode,
		Message: "data transfer",
		Payload: map[string]any{
			"sourceHandle": t.SourceHandle,
			"targetNode":   t.TargetNode,
			"targetHandle": t.TargetHandle,
			"value":        Sanitize(t.Value),
		},
	})
}

func (o *SinkObserver) OnAPIRequest(ctx context.Context, run api.RunInfo, req api.APIRequest) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelInfo,
		RunID:   run.RunID,
		NodeID:  req.NodeID,
		Message: "api request",
		Payload: map[string]any{
			"method":  req.Method,
			"url":     req.URL,
			"headers": SanitizeMap(req.Headers),
			"body":    Sanitize(req.Body),
		},
	})
}

func (o *SinkObserver) OnAPIResponse(ctx context.Context, run api.RunInfo, resp api.APIResponse) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelInfo,
		RunID:   run.RunID,
		NodeID:  resp.NodeID,
		Message: "api response",
		Payload: map[string]any{
			"method":    resp.Method,
			"url":       resp.URL,
			"status":    resp.Status,
			"body":      Sanitize(resp.Body),
			"latencyMs": resp.Latency.Milliseconds(),
		},
	})
}

func (o *SinkObserver) OnAPIError(ctx context.Context, run api.RunInfo, req api.APIRequest, err error) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelError,
		RunID:   run.RunID,
		NodeID:  req.NodeID,
		Message: "api error",
		Payload: map[string]any{
			"method": req.Method,
			"url":    req.URL,
			"error":  truncateString(err.Error()),
		},
	})
}

func (o *SinkObserver) OnWarning(ctx context.Context, run api.RunInfo, nodeID string, msg string) {
	o.record(api.ExecutionEvent{
		Level:   api.LevelWarn,
		RunID:   run.RunID,
		NodeID:  nodeID,
		Message: msg,
	})
}
