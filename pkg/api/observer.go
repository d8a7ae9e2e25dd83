package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the flow engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay flow execution. The telemetry package
// provides a bounded asynchronous recorder for exactly that purpose.
type Observer interface {
	// OnRunStart is called once when a flow run begins, after the
	// starting node has been resolved but before it executes.
	OnRunStart(ctx context.Context, run RunInfo)

	// OnRunEnd is called exactly once per run with the final result,
	// for both successful and failed runs.
	OnRunEnd(ctx context.Context, run RunInfo, result RunResult)

	// OnNodeStart is called before a node executor is invoked.
	OnNodeStart(ctx context.Context, run RunInfo, node Node)

	// OnNodeEnd is called after a node executor returns, with the raw
	// output it produced.
	OnNodeEnd(ctx context.Context, run RunInfo, node Node, output any, duration time.Duration)

	// OnDataTransfer is called for every value copied along a data edge.
	OnDataTransfer(ctx context.Context, run RunInfo, transfer DataTransfer)

	// OnAPIRequest is called just before an outbound API call.
	OnAPIRequest(ctx context.Context, run RunInfo, req APIRequest)

	// OnAPIResponse is called after an outbound API call returns a response.
	OnAPIResponse(ctx context.Context, run RunInfo, resp APIResponse)

	// OnAPIError is called when an outbound API call fails.
	OnAPIError(ctx context.Context, run RunInfo, req APIRequest, err error)

	// OnWarning is called for soft conditions the run survives, such as
	// an unknown node type or an unmatched conditional branch.
	OnWarning(ctx context.Context, run RunInfo, nodeID string, message string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run RunInfo)                    {}
func (NoopObserver) OnRunEnd(ctx context.Context, run RunInfo, result RunResult)    {}
func (NoopObserver) OnNodeStart(ctx context.Context, run RunInfo, node Node)        {}
func (NoopObserver) OnNodeEnd(ctx context.Context, run RunInfo, node Node, output any, d time.Duration) {
}
func (NoopObserver) OnDataTransfer(ctx context.Context, run RunInfo, t DataTransfer)       {}
func (NoopObserver) OnAPIRequest(ctx context.Context, run RunInfo, req APIRequest)         {}
func (NoopObserver) OnAPIResponse(ctx context.Context, run RunInfo, resp APIResponse)      {}
func (NoopObserver) OnAPIError(ctx context.Context, run RunInfo, req APIRequest, e error)  {}
func (NoopObserver) OnWarning(ctx context.Context, run RunInfo, nodeID string, msg string) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run RunInfo) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunEnd(ctx context.Context, run RunInfo, result RunResult) {
	for _, o := range c.observers {
		o.OnRunEnd(ctx, run, result)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, run RunInfo, node Node) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, run, node)
	}
}

func (c *CompositeObserver) OnNodeEnd(ctx context.Context, run RunInfo, node Node, output any, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeEnd(ctx, run, node, output, d)
	}
}

func (c *CompositeObserver) OnDataTransfer(ctx context.Context, run RunInfo, t DataTransfer) {
	for _, o := range c.observers {
		o.OnDataTransfer(ctx, run, t)
	}
}

func (c *CompositeObserver) OnAPIRequest(ctx context.Context, run RunInfo, req APIRequest) {
	for _, o := range c.observers {
		o.OnAPIRequest(ctx, run, req)
	}
}

func (c *CompositeObserver) OnAPIResponse(ctx context.Context, run RunInfo, resp APIResponse) {
	for _, o := range c.observers {
		o.OnAPIResponse(ctx, run, resp)
	}
}

func (c *CompositeObserver) OnAPIError(ctx context.Context, run RunInfo, req APIRequest, err error) {
	for _, o := range c.observers {
		o.OnAPIError(ctx, run, req, err)
	}
}

func (c *CompositeObserver) OnWarning(ctx context.Context, run RunInfo, nodeID string, msg string) {
	for _, o := range c.observers {
		o.OnWarning(ctx, run, nodeID, msg)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / node lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run RunInfo) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", run.RunID),
		slog.String("task_id", run.TaskID),
		slog.String("task_type", run.TaskType),
	)
}

func (o *LoggingObserver) OnRunEnd(ctx context.Context, run RunInfo, result RunResult) {
	level := slog.LevelInfo
	if !result.Success {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "run_end",
		slog.String("run_id", run.RunID),
		slog.Bool("success", result.Success),
		slog.String("error", result.Error),
	)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, run RunInfo, node Node) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("run_id", run.RunID),
		slog.String("node_id", node.ID),
		slog.String("node_type", string(node.Type)),
	)
}

func (o *LoggingObserver) OnNodeEnd(ctx context.Context, run RunInfo, node Node, output any, d time.Duration) {
	o.Logger.DebugContext(ctx, "node_end",
		slog.String("run_id", run.RunID),
		slog.String("node_id", node.ID),
		slog.String("node_type", string(node.Type)),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnDataTransfer(ctx context.Context, run RunInfo, t DataTransfer) {
	o.Logger.DebugContext(ctx, "data_transfer",
		slog.String("run_id", run.RunID),
		slog.String("source", t.SourceNode+"/"+t.SourceHandle),
		slog.String("target", t.TargetNode+"/"+t.TargetHandle),
	)
}

func (o *LoggingObserver) OnAPIRequest(ctx context.Context, run RunInfo, req APIRequest) {
	o.Logger.DebugContext(ctx, "api_request",
		slog.String("run_id", run.RunID),
		slog.String("node_id", req.NodeID),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
	)
}

func (o *LoggingObserver) OnAPIResponse(ctx context.Context, run RunInfo, resp APIResponse) {
	o.Logger.DebugContext(ctx, "api_response",
		slog.String("run_id", run.RunID),
		slog.String("node_id", resp.NodeID),
		slog.Int("status", resp.Status),
		slog.Duration("latency", resp.Latency),
	)
}

func (o *LoggingObserver) OnAPIError(ctx context.Context, run RunInfo, req APIRequest, err error) {
	o.Logger.ErrorContext(ctx, "api_error",
		slog.String("run_id", run.RunID),
		slog.String("node_id", req.NodeID),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnWarning(ctx context.Context, run RunInfo, nodeID string, msg string) {
	o.Logger.WarnContext(ctx, "run_warning",
		slog.String("run_id", run.RunID),
		slog.String("node_id", nodeID),
		slog.String("message", msg),
	)
}

// BasicMetrics collects simple counters and aggregate node durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsSucceeded     atomic.Int64
	runsFailed        atomic.Int64
	nodesExecuted     atomic.Int64
	apiCalls          atomic.Int64
	apiErrors         atomic.Int64
	totalNodeDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64

	NodesExecuted   int64
	AvgNodeDuration time.Duration

	APICalls  int64
	APIErrors int64
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run RunInfo) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunEnd(ctx context.Context, run RunInfo, result RunResult) {
	if result.Success {
		m.runsSucceeded.Add(1)
	} else {
		m.runsFailed.Add(1)
	}
}

func (m *BasicMetrics) OnNodeEnd(ctx context.Context, run RunInfo, node Node, output any, d time.Duration) {
	m.nodesExecuted.Add(1)
	m.totalNodeDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnAPIResponse(ctx context.Context, run RunInfo, resp APIResponse) {
	m.apiCalls.Add(1)
}

func (m *BasicMetrics) OnAPIError(ctx context.Context, run RunInfo, req APIRequest, err error) {
	m.apiCalls.Add(1)
	m.apiErrors.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	nodes := m.nodesExecuted.Load()
	totalNs := m.totalNodeDuration.Load()

	var avg time.Duration
	if nodes > 0 {
		avg = time.Duration(totalNs / nodes)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     m.runsStarted.Load(),
		RunsSucceeded:   m.runsSucceeded.Load(),
		RunsFailed:      m.runsFailed.Load(),
		NodesExecuted:   nodes,
		AvgNodeDuration: avg,
		APICalls:        m.apiCalls.Load(),
		APIErrors:       m.apiErrors.Load(),
	}
}
