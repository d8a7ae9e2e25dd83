package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/graflow/graflow/internal/httpcall"
	"github.com/graflow/graflow/pkg/api"
)

// Config describes how to construct an Engine. All fields are optional;
// a zero Config yields an engine that can run graphs which never reach
// a remote capability.
type Config struct {
	// Observer receives telemetry callbacks. Defaults to NoopObserver.
	Observer api.Observer

	// Logger is used by the consoleLog node. Defaults to slog.Default().
	Logger *slog.Logger

	// Remote capability providers. A nil provider makes the matching
	// node fail with a structured node-local error instead of a panic.
	Mail api.EmailTransport
	OCR  api.OCRProvider
	LLM  api.LLMProvider

	// HTTPClient is the base client for apiCall nodes and the OAuth2
	// token exchange. Per-request settings from the backend config
	// (timeout, proxy, TLS policy) are layered on top of it.
	HTTPClient *http.Client

	// Production suppresses response-body previews in API error
	// messages.
	Production bool
}

type executorFunc func(ctx context.Context, rc *runContext, node api.Node) (any, error)

// Engine executes workflow graphs against tasks. It holds no per-run
// state: everything a run touches lives in a runContext value created
// inside ExecuteFlow, so a single Engine is safe for concurrent runs.
// The OAuth2 token cache is the one deliberately shared piece of state,
// amortizing token fetches across runs.
type Engine struct {
	observer  api.Observer
	logger    *slog.Logger
	mail      api.EmailTransport
	ocr       api.OCRProvider
	llm       api.LLMProvider
	caller    *httpcall.Client
	executors map[api.NodeType]executorFunc
}

// New constructs an Engine from the given configuration.
func New(cfg Config) *Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		observer: obs,
		logger:   logger,
		mail:     cfg.Mail,
		ocr:      cfg.OCR,
		llm:      cfg.LLM,
		caller:   httpcall.NewClient(cfg.HTTPClient, cfg.Production),
	}

	e.executors = map[api.NodeType]executorFunc{
		api.NodeCondition:       e.execCondition,
		api.NodeText:            e.execText,
		api.NodeInt:             e.execInt,
		api.NodeConsoleLog:      e.execConsoleLog,
		api.NodeConditionalFlow: e.execConditionalFlow,
		api.NodeSendMail:        e.execSendMail,
		api.NodeEmailAttachment: e.execEmailAttachment,
		api.NodeOCR:             e.execOCR,
		api.NodeAI:              e.execAI,
		api.NodeAPICall:         e.execAPICall,
	}
	return e
}

// ExecuteFlow resolves the starting node for the task, seeds a fresh
// run context, and walks the graph. It is the single catch boundary:
// callers always get a well-formed RunResult, never a raw error or
// panic from a node executor.
func (e *Engine) ExecuteFlow(ctx context.Context, graph api.Graph, task api.Task, cfg *api.BackendConfig) (result api.RunResult) {
	info := api.RunInfo{
		RunID:    uuid.NewString(),
		TaskID:   task.ID,
		TaskType: task.Type,
	}
	rc := newRunContext(info, &graph, task, cfg)

	result = api.RunResult{RunID: info.RunID, Context: rc.values}

	e.observer.OnRunStart(ctx, info)
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic during flow execution: %v", r)
		}
		e.observer.OnRunEnd(ctx, info, result)
	}()

	start, err := findStartingNode(&graph, task)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	rc.seed(start)

	out, err := e.executeNode(ctx, rc, start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Result = out
	return result
}

// findStartingNode scans for the unique condition node that is flagged
// as a starting point and whose return text matches the task type.
// Zero matches fail the run outright; more than one is a graph
// configuration error rather than something to resolve silently.
func findStartingNode(graph *api.Graph, task api.Task) (api.Node, error) {
	var matches []api.Node
	for _, n := range graph.Nodes {
		if n.Type == api.NodeCondition && n.Data.IsStartingPoint && n.Data.ReturnText == task.Type {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return api.Node{}, fmt.Errorf("%w: %q", api.ErrNoStartingNode, task.Type)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, n := range matches {
			ids[i] = n.ID
		}
		return api.Node{}, &api.AmbiguousStartError{TaskType: task.Type, NodeIDs: ids}
	}
}
