package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/graflow/graflow/pkg/api"
)

// executeNode runs a single node and then its outgoing edges: data
// edges are copied immediately so values are available regardless of
// whether the target is ever reached via control flow, and execution
// edges are followed recursively, one after another.
//
// Only the apiCall executor may return an error; every other failure
// is a structured output value and traversal continues.
func (e *Engine) executeNode(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	if rc.executing[node.ID] {
		return nil, &api.CycleError{NodeID: node.ID}
	}
	rc.executing[node.ID] = true
	defer delete(rc.executing, node.ID)

	e.observer.OnNodeStart(ctx, rc.info, node)
	started := time.Now()

	var (
		output any
		err    error
	)
	if exec, ok := e.executors[node.Type]; ok {
		output, err = exec(ctx, rc, node)
	} else {
		// Unknown node types are a soft condition: a graph may carry
		// node kinds this engine does not support yet.
		e.observer.OnWarning(ctx, rc.info, node.ID, fmt.Sprintf("unknown node type %q, skipping", node.Type))
	}

	e.observer.OnNodeEnd(ctx, rc.info, node, output, time.Since(started))
	if err != nil {
		return nil, err
	}

	rc.set(api.PortPrefixOutput+node.ID, output)

	var execEdges []api.Edge
	for _, edge := range rc.outgoing[node.ID] {
		if edge.IsExecutionLink {
			execEdges = append(execEdges, edge)
			continue
		}
		value, ok := resolvePort(rc, node, edge.SourceHandle)
		if !ok {
			continue
		}
		rc.set(edge.TargetHandle, value)
		e.observer.OnDataTransfer(ctx, rc.info, api.DataTransfer{
			SourceNode:   edge.Source,
			SourceHandle: edge.SourceHandle,
			TargetNode:   edge.Target,
			TargetHandle: edge.TargetHandle,
			Value:        value,
		})
	}

	if node.Type == api.NodeConditionalFlow {
		return e.followBranch(ctx, rc, node, output, execEdges)
	}

	if len(execEdges) == 0 {
		return output, nil
	}

	var results []any
	for _, edge := range execEdges {
		target, ok := rc.nodesByID[edge.Target]
		if !ok {
			e.observer.OnWarning(ctx, rc.info, node.ID, fmt.Sprintf("execution edge targets unknown node %q", edge.Target))
			continue
		}
		res, err := e.executeNode(ctx, rc, target)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// followBranch continues traversal after a conditionalFlow node: only
// the execution edge whose source handle names the computed branch is
// taken. An unmatched branch is a warning and ends this path, not a
// run failure.
func (e *Engine) followBranch(ctx context.Context, rc *runContext, node api.Node, output any, execEdges []api.Edge) (any, error) {
	branch := cast.ToString(output)
	want := api.ExecutionHandle(branch)

	for _, edge := range execEdges {
		if edge.SourceHandle != want {
			continue
		}
		target, ok := rc.nodesByID[edge.Target]
		if !ok {
			e.observer.OnWarning(ctx, rc.info, node.ID, fmt.Sprintf("execution edge targets unknown node %q", edge.Target))
			return output, nil
		}
		return e.executeNode(ctx, rc, target)
	}

	if len(execEdges) > 0 {
		e.observer.OnWarning(ctx, rc.info, node.ID, fmt.Sprintf("no execution edge for branch %q", branch))
	}
	return output, nil
}
