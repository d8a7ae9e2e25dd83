package graflow

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/graflow/graflow/internal/engine"
	"github.com/graflow/graflow/internal/providers"
	"github.com/graflow/graflow/internal/store"
	"github.com/graflow/graflow/internal/telemetry"
	"github.com/graflow/graflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Graph          = api.Graph
	Node           = api.Node
	NodeData       = api.NodeData
	NodeType       = api.NodeType
	Edge           = api.Edge
	Task           = api.Task
	TaskAttachment = api.TaskAttachment
	BackendConfig  = api.BackendConfig
	AuthParams     = api.AuthParams
	RunResult      = api.RunResult

	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	LoggingObserver      = api.LoggingObserver
	CompositeObserver    = api.CompositeObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	EventSink      = api.EventSink
	ExecutionEvent = api.ExecutionEvent

	EmailTransport = api.EmailTransport
	EmailMessage   = api.EmailMessage
	OCRProvider    = api.OCRProvider
	OCRResult      = api.OCRResult
	LLMProvider    = api.LLMProvider
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export node types for convenience.

const (
	NodeCondition       = api.NodeCondition
	NodeAPICall         = api.NodeAPICall
	NodeText            = api.NodeText
	NodeInt             = api.NodeInt
	NodeSendMail        = api.NodeSendMail
	NodeEmailAttachment = api.NodeEmailAttachment
	NodeOCR             = api.NodeOCR
	NodeConsoleLog      = api.NodeConsoleLog
	NodeAI              = api.NodeAI
	NodeConditionalFlow = api.NodeConditionalFlow
)

// Config describes how to construct an Engine.
// The zero value yields an engine that can run graphs which never reach
// a remote capability.
type Config struct {
	// Observer receives telemetry callbacks. Defaults to NoopObserver.
	Observer Observer

	// Logger is used by consoleLog nodes. Defaults to slog.Default().
	Logger *slog.Logger

	// Remote capabilities. Each may be nil; the matching node then
	// fails with a structured node-local error.
	Mail EmailTransport
	OCR  OCRProvider
	LLM  LLMProvider

	// HTTPClient is the base client for apiCall nodes and the OAuth2
	// token exchange.
	HTTPClient *http.Client

	// Production suppresses response-body previews in API error messages.
	Production bool
}

// Engine executes flow graphs. A single Engine is safe for concurrent
// runs; all per-run state lives inside ExecuteFlow.
type Engine struct {
	inner *engine.Engine
}

// NewEngine constructs an Engine from the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{inner: engine.New(engine.Config{
		Observer:   cfg.Observer,
		Logger:     cfg.Logger,
		Mail:       cfg.Mail,
		OCR:        cfg.OCR,
		LLM:        cfg.LLM,
		HTTPClient: cfg.HTTPClient,
		Production: cfg.Production,
	})}
}

// ExecuteFlow runs the graph against the task. The backend config may
// be nil when the graph contains no apiCall nodes. The returned result
// is always well-formed; executor failures surface as Success=false.
func (e *Engine) ExecuteFlow(ctx context.Context, graph Graph, task Task, cfg *BackendConfig) RunResult {
	return e.inner.ExecuteFlow(ctx, graph, task, cfg)
}

// Telemetry constructors
// These wrap the internal/telemetry package so external callers never
// need to import internal packages.

// NewSinkObserver converts execution events for the given sink, masking
// secrets first.
func NewSinkObserver(sink EventSink) Observer {
	return telemetry.NewSinkObserver(sink)
}

// NewRecorder wraps sink in a bounded asynchronous recorder so slow
// sinks never delay a run. Callers must Close it when done.
func NewRecorder(sink EventSink, buffer int) *telemetry.Recorder {
	return telemetry.NewRecorder(sink, buffer)
}

// NewMemoryEventSink returns a sink that keeps events in memory.
func NewMemoryEventSink() *telemetry.MemorySink {
	return telemetry.NewMemorySink()
}

// NewSQLiteEventStore returns a sink that persists events in a SQLite
// database. The caller is responsible for importing a SQLite driver,
// e.g.:
//
//	import _ "modernc.org/sqlite"
func NewSQLiteEventStore(db *sql.DB) (*telemetry.SQLiteEventStore, error) {
	return telemetry.NewSQLiteEventStore(db)
}

// Store constructors

// FlowStore supplies flow graphs by id.
type FlowStore = store.FlowStore

// ConfigStore supplies backend configs by id or active flag.
type ConfigStore = store.ConfigStore

// NewMemoryStore returns an in-memory FlowStore and ConfigStore.
func NewMemoryStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// NewSQLiteStore returns a SQLite-backed FlowStore and ConfigStore.
func NewSQLiteStore(db *sql.DB) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(db)
}

// Capability provider constructors

// NewHTTPMailTransport returns an EmailTransport speaking to a
// mail-service HTTP API.
func NewHTTPMailTransport(baseURL, apiKey string, client *http.Client) EmailTransport {
	return providers.NewHTTPMailTransport(baseURL, apiKey, client)
}

// NewHTTPOCRProvider returns an OCRProvider speaking to an OCR HTTP
// service.
func NewHTTPOCRProvider(baseURL, apiKey string, client *http.Client) OCRProvider {
	return providers.NewHTTPOCRProvider(baseURL, apiKey, client)
}

// NewOpenAILLMProvider returns an LLMProvider speaking to an
// OpenAI-style chat/completions endpoint. Empty baseURL and model
// select the OpenAI defaults.
func NewOpenAILLMProvider(baseURL, apiKey, model string, client *http.Client) LLMProvider {
	return providers.NewOpenAILLMProvider(baseURL, apiKey, model, client)
}
