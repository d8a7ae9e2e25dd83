package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

// captureObserver records warnings and data transfers for assertions.
type captureObserver struct {
	api.NoopObserver

	mu        sync.Mutex
	warnings  []string
	transfers []api.DataTransfer
}

func (o *captureObserver) OnWarning(ctx context.Context, run api.RunInfo, nodeID string, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, msg)
}

func (o *captureObserver) OnDataTransfer(ctx context.Context, run api.RunInfo, tr api.DataTransfer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transfers = append(o.transfers, tr)
}

func (o *captureObserver) hasWarningContaining(substr string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, w := range o.warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func startNode(id, taskType string) api.Node {
	return api.Node{
		ID:   id,
		Type: api.NodeCondition,
		Data: api.NodeData{IsStartingPoint: true, ReturnText: taskType},
	}
}

func execEdge(source, target string) api.Edge {
	return api.Edge{Source: source, Target: target, IsExecutionLink: true}
}

func TestFindStartingNodeUnique(t *testing.T) {
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "invoice_email"),
		startNode("s2", "support_email"),
		{ID: "t1", Type: api.NodeText, Data: api.NodeData{Text: "x"}},
	}}

	node, err := findStartingNode(&graph, api.Task{Type: "invoice_email"})
	if err != nil {
		t.Fatalf("findStartingNode failed: %v", err)
	}
	if node.ID != "s1" {
		t.Fatalf("expected starting node s1, got %q", node.ID)
	}
}

func TestFindStartingNodeNoneMatches(t *testing.T) {
	graph := api.Graph{Nodes: []api.Node{startNode("s1", "invoice_email")}}

	_, err := findStartingNode(&graph, api.Task{Type: "unknown_type"})
	if !errors.Is(err, api.ErrNoStartingNode) {
		t.Fatalf("expected ErrNoStartingNode, got %v", err)
	}

	eng := New(Config{})
	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "unknown_type"}, nil)
	if result.Success {
		t.Fatal("expected run to fail with no starting node")
	}
	if !strings.Contains(result.Error, "no starting node") {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}

func TestFindStartingNodeAmbiguous(t *testing.T) {
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "invoice_email"),
		startNode("s2", "invoice_email"),
	}}

	_, err := findStartingNode(&graph, api.Task{Type: "invoice_email"})
	var ambiguous *api.AmbiguousStartError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousStartError, got %v", err)
	}
	if len(ambiguous.NodeIDs) != 2 {
		t.Fatalf("expected 2 candidate ids, got %v", ambiguous.NodeIDs)
	}

	eng := New(Config{})
	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "invoice_email"}, nil)
	if result.Success {
		t.Fatal("expected ambiguous start to fail the run")
	}
}

func TestContextSeeding(t *testing.T) {
	task := api.Task{
		ID:          "t-1",
		Type:        "invoice_email",
		SourceID:    "mail-42",
		SenderEmail: "ada@example.com",
		Subject:     "Invoice 2024-07",
		Attachments: []api.TaskAttachment{
			{ID: "att-0", Name: "invoice.pdf"},
			{ID: "att-1", Name: "terms.pdf"},
		},
	}
	start := api.Node{
		ID:   "s1",
		Type: api.NodeCondition,
		Data: api.NodeData{
			IsStartingPoint: true,
			ReturnText:      "invoice_email",
			EmailAttributes: map[string]any{
				"subject":  "default subject",
				"category": "invoice",
			},
		},
	}
	graph := api.Graph{Nodes: []api.Node{start}}

	rc := newRunContext(api.RunInfo{RunID: "r"}, &graph, task, nil)
	rc.seed(start)

	// Explicit task fields win over node defaults; node-only fields survive.
	if got := rc.get("attr-subject"); got != "Invoice 2024-07" {
		t.Fatalf("attr-subject = %v, want task subject", got)
	}
	if got := rc.get("attr-category"); got != "invoice" {
		t.Fatalf("attr-category = %v, want node default", got)
	}
	if got := rc.get("attr-email_id"); got != "mail-42" {
		t.Fatalf("attr-email_id = %v, want mail-42", got)
	}
	if got := rc.get("attr-sender_email"); got != "ada@example.com" {
		t.Fatalf("attr-sender_email = %v", got)
	}

	// Attachments are bound three ways.
	atts, ok := rc.get("attr-attachments").([]api.TaskAttachment)
	if !ok || len(atts) != 2 {
		t.Fatalf("attr-attachments = %v", rc.get("attr-attachments"))
	}
	if got := rc.get("attr-attachment-1"); got != "att-1" {
		t.Fatalf("attr-attachment-1 = %v, want att-1", got)
	}
	if got := rc.get("attr-attachment_id"); got != "att-0" {
		t.Fatalf("attr-attachment_id = %v, want att-0", got)
	}
}

func TestLiteralNodesAreIdempotent(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "txt", Type: api.NodeText, Data: api.NodeData{Text: "hello"}},
	}, Edges: []api.Edge{execEdge("s1", "txt")}}

	first := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	second := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)

	if !first.Success || !second.Success {
		t.Fatalf("runs failed: %q / %q", first.Error, second.Error)
	}
	if first.Result != "hello" || second.Result != "hello" {
		t.Fatalf("results differ: %v / %v", first.Result, second.Result)
	}
}

func TestIntNodeValues(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "n", Type: api.NodeInt, Data: api.NodeData{Value: json.Number("42")}},
	}, Edges: []api.Edge{execEdge("s1", "n")}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("run failed: %q", result.Error)
	}
	if result.Result != int64(42) {
		t.Fatalf("result = %v (%T), want int64(42)", result.Result, result.Result)
	}
}

func TestUnknownNodeTypeIsSoft(t *testing.T) {
	obs := &captureObserver{}
	eng := New(Config{Observer: obs})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "future", Type: api.NodeType("hologram")},
	}, Edges: []api.Edge{execEdge("s1", "future")}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("unknown node type must not fail the run: %q", result.Error)
	}
	if result.Result != nil {
		t.Fatalf("unknown node output = %v, want nil", result.Result)
	}
	if !obs.hasWarningContaining("unknown node type") {
		t.Fatalf("expected unknown-node warning, got %v", obs.warnings)
	}
}

func TestCycleDetection(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "log", Type: api.NodeConsoleLog},
	}, Edges: []api.Edge{
		execEdge("s1", "log"),
		execEdge("log", "s1"),
	}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if result.Success {
		t.Fatal("expected cyclic graph to fail")
	}
	if !strings.Contains(result.Error, "cycle") {
		t.Fatalf("error %q does not name the cycle", result.Error)
	}
}

func TestDiamondGraphIsNotACycle(t *testing.T) {
	// s1 -> a -> d and s1 -> b -> d: d is reached twice but never while
	// it is on the traversal stack.
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "a", Type: api.NodeText, Data: api.NodeData{Text: "a"}},
		{ID: "b", Type: api.NodeText, Data: api.NodeData{Text: "b"}},
		{ID: "d", Type: api.NodeText, Data: api.NodeData{Text: "d"}},
	}, Edges: []api.Edge{
		execEdge("s1", "a"),
		execEdge("s1", "b"),
		execEdge("a", "d"),
		execEdge("b", "d"),
	}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("diamond graph failed: %q", result.Error)
	}
	results, ok := result.Result.([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("result = %v, want two branch results", result.Result)
	}
}

func TestConditionalFlowFollowsMatchingBranch(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "cmp", Type: api.NodeConditionalFlow, Data: api.NodeData{
			ConditionType: "greaterThan",
			InputValue:    10,
			CompareValue:  5,
		}},
		{ID: "big", Type: api.NodeText, Data: api.NodeData{Text: "big"}},
		{ID: "small", Type: api.NodeText, Data: api.NodeData{Text: "small"}},
	}, Edges: []api.Edge{
		execEdge("s1", "cmp"),
		{Source: "cmp", Target: "big", SourceHandle: api.ExecutionHandle("true"), IsExecutionLink: true},
		{Source: "cmp", Target: "small", SourceHandle: api.ExecutionHandle("false"), IsExecutionLink: true},
	}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("run failed: %q", result.Error)
	}
	if result.Result != "big" {
		t.Fatalf("result = %v, want %q", result.Result, "big")
	}
}

func TestConditionalFlowUnmatchedBranchWarns(t *testing.T) {
	obs := &captureObserver{}
	eng := New(Config{Observer: obs})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "cmp", Type: api.NodeConditionalFlow, Data: api.NodeData{
			ConditionType: "equals",
			InputValue:    "a",
			CompareValue:  "b",
		}},
		{ID: "yes", Type: api.NodeText, Data: api.NodeData{Text: "yes"}},
	}, Edges: []api.Edge{
		execEdge("s1", "cmp"),
		{Source: "cmp", Target: "yes", SourceHandle: api.ExecutionHandle("true"), IsExecutionLink: true},
	}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("unmatched branch must not fail the run: %q", result.Error)
	}
	if result.Result != "false" {
		t.Fatalf("result = %v, want the branch value %q", result.Result, "false")
	}
	if !obs.hasWarningContaining("no execution edge for branch") {
		t.Fatalf("expected unmatched-branch warning, got %v", obs.warnings)
	}
}

func TestDataEdgesCopyBeforeControlFlow(t *testing.T) {
	obs := &captureObserver{}
	eng := New(Config{Observer: obs})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "txt", Type: api.NodeText, Data: api.NodeData{Text: "copied"}},
		{ID: "log", Type: api.NodeConsoleLog},
	}, Edges: []api.Edge{
		execEdge("s1", "txt"),
		{Source: "txt", Target: "log", SourceHandle: "txt-output", TargetHandle: "input-value"},
		execEdge("txt", "log"),
	}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("run failed: %q", result.Error)
	}
	out, ok := result.Result.(map[string]any)
	if !ok {
		t.Fatalf("result = %v (%T)", result.Result, result.Result)
	}
	if out["logged"] != true || out["value"] != "copied" {
		t.Fatalf("consoleLog output = %v", out)
	}
	if len(obs.transfers) == 0 {
		t.Fatal("expected a data-transfer event")
	}
}

func TestExecuteFlowInvoiceScenario(t *testing.T) {
	// A trimmed version of the production shape: an inbound invoice email
	// triggers a lookup against the backend, keyed by a seeded attribute.
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "abc", "name": "Ada"})
	}))
	defer server.Close()

	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "invoice_email"),
		{ID: "lookup", Type: api.NodeAPICall, Data: api.NodeData{
			Method: "GET",
			Path:   "/users",
			Parameters: []api.ParameterSpec{
				{Name: "sender_email", In: "query", Required: true},
			},
		}},
	}, Edges: []api.Edge{execEdge("s1", "lookup")}}

	task := api.Task{
		ID:          "t-1",
		Type:        "invoice_email",
		SourceID:    "abc",
		SenderEmail: "ada@example.com",
	}
	cfg := &api.BackendConfig{BaseURL: server.URL}

	result := eng.ExecuteFlow(context.Background(), graph, task, cfg)
	if !result.Success {
		t.Fatalf("run failed: %q", result.Error)
	}

	want := map[string]any{"id": "abc", "name": "Ada"}
	if !reflect.DeepEqual(result.Result, want) {
		t.Fatalf("result = %v, want %v", result.Result, want)
	}
	if !strings.Contains(gotPath, "sender_email=ada%40example.com") {
		t.Fatalf("query parameter not resolved from task attribute: %q", gotPath)
	}
	if result.Context["attr-email_id"] != "abc" {
		t.Fatalf("attr-email_id = %v, want abc", result.Context["attr-email_id"])
	}

	// The full response stays addressable in the context.
	full, ok := result.Context["lookup-output"].(map[string]any)
	if !ok {
		t.Fatalf("lookup-output missing: %v", result.Context["lookup-output"])
	}
	if full["status"] != 200 {
		t.Fatalf("lookup-output status = %v", full["status"])
	}
}

func TestAPICallFailurePropagatesToRunResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"message": "User not found"})
	}))
	defer server.Close()

	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "call", Type: api.NodeAPICall, Data: api.NodeData{Method: "GET", Path: "/users/missing"}},
	}, Edges: []api.Edge{execEdge("s1", "call")}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, &api.BackendConfig{BaseURL: server.URL})
	if result.Success {
		t.Fatal("expected API failure to fail the run")
	}
	if !strings.Contains(result.Error, "404") || !strings.Contains(result.Error, "User not found") {
		t.Fatalf("error %q should carry status and body detail", result.Error)
	}
}

func TestAPICallWithoutBackendConfigFails(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "call", Type: api.NodeAPICall, Data: api.NodeData{Method: "GET", Path: "/x"}},
	}, Edges: []api.Edge{execEdge("s1", "call")}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if result.Success {
		t.Fatal("expected missing backend config to fail the run")
	}
	if !strings.Contains(result.Error, "backend config") {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}

func TestConcurrentRunsDoNotInterleave(t *testing.T) {
	eng := New(Config{})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "txt", Type: api.NodeText, Data: api.NodeData{Text: "ok"}},
	}, Edges: []api.Edge{execEdge("s1", "txt")}}

	const runs = 32
	var wg sync.WaitGroup
	errs := make(chan string, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			task := api.Task{ID: "t", Type: "t", SourceID: "src"}
			result := eng.ExecuteFlow(context.Background(), graph, task, nil)
			if !result.Success {
				errs <- result.Error
				return
			}
			if result.Context["attr-email_id"] != "src" {
				errs <- "context interleaved across runs"
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

type runEndCounter struct {
	api.NoopObserver

	mu   sync.Mutex
	ends []api.RunResult
}

func (c *runEndCounter) OnRunEnd(ctx context.Context, run api.RunInfo, result api.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends = append(c.ends, result)
}

func TestRunEndFiresExactlyOnce(t *testing.T) {
	counter := &runEndCounter{}
	eng := New(Config{Observer: counter})
	graph := api.Graph{Nodes: []api.Node{startNode("s1", "t")}}

	eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "other"}, nil)

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if len(counter.ends) != 2 {
		t.Fatalf("expected 2 run-end callbacks, got %d", len(counter.ends))
	}
	if !counter.ends[0].Success {
		t.Fatalf("first run should succeed: %q", counter.ends[0].Error)
	}
	if counter.ends[1].Success {
		t.Fatal("second run should fail (no starting node)")
	}
}

func TestNodeDurationsAreObserved(t *testing.T) {
	metrics := &api.BasicMetrics{}
	eng := New(Config{Observer: metrics})
	graph := api.Graph{Nodes: []api.Node{
		startNode("s1", "t"),
		{ID: "txt", Type: api.NodeText, Data: api.NodeData{Text: "x"}},
	}, Edges: []api.Edge{execEdge("s1", "txt")}}

	result := eng.ExecuteFlow(context.Background(), graph, api.Task{Type: "t"}, nil)
	if !result.Success {
		t.Fatalf("run failed: %q", result.Error)
	}

	snap := metrics.Snapshot()
	if snap.NodesExecuted != 2 {
		t.Fatalf("NodesExecuted = %d, want 2", snap.NodesExecuted)
	}
	if snap.RunsSucceeded != 1 {
		t.Fatalf("RunsSucceeded = %d, want 1", snap.RunsSucceeded)
	}
	if snap.AvgNodeDuration < 0 || snap.AvgNodeDuration > time.Second {
		t.Fatalf("implausible AvgNodeDuration %v", snap.AvgNodeDuration)
	}
}
