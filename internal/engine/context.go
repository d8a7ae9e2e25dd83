package engine

import (
	"fmt"

	"github.com/graflow/graflow/pkg/api"
)

// runContext is the run-scoped key/value store threading data between
// nodes, together with the graph indexes the dispatcher needs.
//
// A runContext belongs to exactly one call to ExecuteFlow and is passed
// explicitly down the call chain; it is never stored on the engine, so
// concurrent runs cannot interleave state.
type runContext struct {
	info  api.RunInfo
	task  api.Task
	cfg   *api.BackendConfig
	graph *api.Graph

	values map[string]any

	// executing tracks the nodes currently on the traversal stack so a
	// cycle in the execution links fails fast instead of recursing
	// without bound.
	executing map[string]bool

	nodesByID map[string]api.Node
	outgoing  map[string][]api.Edge
}

func newRunContext(info api.RunInfo, graph *api.Graph, task api.Task, cfg *api.BackendConfig) *runContext {
	rc := &runContext{
		info:      info,
		task:      task,
		cfg:       cfg,
		graph:     graph,
		values:    make(map[string]any),
		executing: make(map[string]bool),
		nodesByID: make(map[string]api.Node, len(graph.Nodes)),
		outgoing:  make(map[string][]api.Edge),
	}
	for _, n := range graph.Nodes {
		rc.nodesByID[n.ID] = n
	}
	for _, e := range graph.Edges {
		rc.outgoing[e.Source] = append(rc.outgoing[e.Source], e)
	}
	return rc
}

func (rc *runContext) set(key string, value any) {
	rc.values[key] = value
}

func (rc *runContext) lookup(key string) (any, bool) {
	v, ok := rc.values[key]
	return v, ok
}

func (rc *runContext) get(key string) any {
	return rc.values[key]
}

// seed populates the context from the task and the starting node, per
// the seeding contract: the raw task under "task", merged email
// attributes under attr-<field> with explicit task fields winning over
// node defaults, and attachments bound three ways so downstream nodes
// can address "all", "the n-th" or "the first" without extra wiring.
func (rc *runContext) seed(start api.Node) {
	rc.set("task", rc.task)

	merged := make(map[string]any, len(start.Data.EmailAttributes))
	for k, v := range start.Data.EmailAttributes {
		merged[k] = v
	}
	for k, v := range rc.task.Attributes() {
		merged[k] = v
	}
	for k, v := range merged {
		rc.set(api.PortPrefixAttr+k, v)
	}

	if len(rc.task.Attachments) > 0 {
		rc.set("attr-attachments", rc.task.Attachments)
		for i, att := range rc.task.Attachments {
			rc.set(fmt.Sprintf("attr-attachment-%d", i), att.ID)
		}
		rc.set("attr-attachment_id", rc.task.Attachments[0].ID)
	}
}

// incomingEdge returns the data edge arriving at the given target
// handle of the given node, if one is wired.
func (rc *runContext) incomingEdge(nodeID, targetHandle string) (api.Edge, bool) {
	for _, e := range rc.graph.Edges {
		if e.Target == nodeID && e.TargetHandle == targetHandle && !e.IsExecutionLink {
			return e, true
		}
	}
	return api.Edge{}, false
}
