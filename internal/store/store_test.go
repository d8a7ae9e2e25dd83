package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/graflow/graflow/pkg/api"
)

// Both implementations must satisfy the same contract, so the tests run
// against each through a shared harness.
type testStore interface {
	FlowStore
	ConfigStore
}

func stores(t *testing.T) map[string]testStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	sqlite, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return map[string]testStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleGraph() api.Graph {
	return api.Graph{
		Nodes: []api.Node{
			{ID: "s1", Type: api.NodeCondition, Data: api.NodeData{IsStartingPoint: true, ReturnText: "invoice_email"}},
			{ID: "t1", Type: api.NodeText, Data: api.NodeData{Text: "hello"}},
		},
		Edges: []api.Edge{
			{Source: "s1", Target: "t1", IsExecutionLink: true},
		},
	}
}

func TestFlowStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			graph := sampleGraph()

			if err := s.SaveFlow(ctx, "invoice-flow", graph); err != nil {
				t.Fatalf("SaveFlow failed: %v", err)
			}

			got, err := s.GetFlow(ctx, "invoice-flow")
			if err != nil {
				t.Fatalf("GetFlow failed: %v", err)
			}
			if !reflect.DeepEqual(got, graph) {
				t.Fatalf("got %+v, want %+v", got, graph)
			}

			// Saving again overwrites.
			graph.Nodes = graph.Nodes[:1]
			if err := s.SaveFlow(ctx, "invoice-flow", graph); err != nil {
				t.Fatalf("SaveFlow overwrite failed: %v", err)
			}
			got, err = s.GetFlow(ctx, "invoice-flow")
			if err != nil {
				t.Fatalf("GetFlow after overwrite failed: %v", err)
			}
			if len(got.Nodes) != 1 {
				t.Fatalf("overwrite did not stick: %+v", got)
			}

			ids, err := s.ListFlows(ctx)
			if err != nil {
				t.Fatalf("ListFlows failed: %v", err)
			}
			if !reflect.DeepEqual(ids, []string{"invoice-flow"}) {
				t.Fatalf("ids = %v", ids)
			}

			if err := s.DeleteFlow(ctx, "invoice-flow"); err != nil {
				t.Fatalf("DeleteFlow failed: %v", err)
			}
			if _, err := s.GetFlow(ctx, "invoice-flow"); !errors.Is(err, ErrFlowNotFound) {
				t.Fatalf("expected ErrFlowNotFound, got %v", err)
			}
			if err := s.DeleteFlow(ctx, "invoice-flow"); !errors.Is(err, ErrFlowNotFound) {
				t.Fatalf("double delete: expected ErrFlowNotFound, got %v", err)
			}
		})
	}
}

func TestConfigStoreActiveHandling(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.ActiveConfig(ctx); !errors.Is(err, ErrNoActiveConfig) {
				t.Fatalf("expected ErrNoActiveConfig, got %v", err)
			}

			prod := api.BackendConfig{
				ID:       "prod",
				BaseURL:  "https://api.example.com",
				AuthType: api.AuthBearer,
				Auth:     api.AuthParams{Token: "t"},
			}
			staging := api.BackendConfig{ID: "staging", BaseURL: "https://staging.example.com"}

			if err := s.SaveConfig(ctx, prod); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}
			if err := s.SaveConfig(ctx, staging); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			got, err := s.GetConfig(ctx, "prod")
			if err != nil {
				t.Fatalf("GetConfig failed: %v", err)
			}
			if !reflect.DeepEqual(got, prod) {
				t.Fatalf("got %+v, want %+v", got, prod)
			}
			if _, err := s.GetConfig(ctx, "missing"); !errors.Is(err, ErrConfigNotFound) {
				t.Fatalf("expected ErrConfigNotFound, got %v", err)
			}

			if err := s.SetActive(ctx, "prod"); err != nil {
				t.Fatalf("SetActive failed: %v", err)
			}
			active, err := s.ActiveConfig(ctx)
			if err != nil {
				t.Fatalf("ActiveConfig failed: %v", err)
			}
			if active.ID != "prod" {
				t.Fatalf("active = %q", active.ID)
			}

			// Activating another config deactivates the previous one.
			if err := s.SetActive(ctx, "staging"); err != nil {
				t.Fatalf("SetActive failed: %v", err)
			}
			active, err = s.ActiveConfig(ctx)
			if err != nil {
				t.Fatalf("ActiveConfig failed: %v", err)
			}
			if active.ID != "staging" {
				t.Fatalf("active = %q", active.ID)
			}

			if err := s.SetActive(ctx, "missing"); !errors.Is(err, ErrConfigNotFound) {
				t.Fatalf("expected ErrConfigNotFound, got %v", err)
			}

			ids, err := s.ListConfigs(ctx)
			if err != nil {
				t.Fatalf("ListConfigs failed: %v", err)
			}
			if !reflect.DeepEqual(ids, []string{"prod", "staging"}) {
				t.Fatalf("ids = %v", ids)
			}
		})
	}
}
