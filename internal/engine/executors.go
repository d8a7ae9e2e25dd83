package engine

import (
	"context"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/graflow/graflow/pkg/api"
)

// Literal and control executors. These never return an error: node-local
// failures become structured {success:false, error} values.

// execCondition returns the node's return text. Starting points double
// as the tag the run matched on.
func (e *Engine) execCondition(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	return node.Data.ReturnText, nil
}

func (e *Engine) execText(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	return node.Data.Text, nil
}

func (e *Engine) execInt(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	if i, err := node.Data.Value.Int64(); err == nil {
		return i, nil
	}
	if f, err := node.Data.Value.Float64(); err == nil {
		return f, nil
	}
	return int64(0), nil
}

// execConsoleLog is a passthrough diagnostic sink for the input-value port.
func (e *Engine) execConsoleLog(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	value, _ := resolveInput(rc, node, "input-value")
	e.logger.InfoContext(ctx, "console_log",
		slog.String("node_id", node.ID),
		slog.Any("value", value),
	)
	return map[string]any{"logged": true, "value": value}, nil
}

// execConditionalFlow computes which branch downstream traversal should
// take. Inputs prefer wired context values over node defaults, and any
// evaluation problem resolves to the "default" branch instead of
// failing the run.
func (e *Engine) execConditionalFlow(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	input, ok := resolveInput(rc, node, "input-value")
	if !ok {
		input = node.Data.InputValue
	}
	compare, ok := resolveInput(rc, node, "compare-value")
	if !ok {
		compare = node.Data.CompareValue
	}

	result := evaluateCondition(node.Data.ConditionType, input, compare)
	rc.set(node.ID+slotResult, result)
	return result, nil
}

// stringInput resolves a required string input of a node, trying the
// wired handle, the task-attribute port of the same name, and finally
// the node's own default.
func stringInput(rc *runContext, node api.Node, handle, nodeDefault string) string {
	if v, ok := resolveInput(rc, node, handle); ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	if v, ok := rc.lookup(api.PortPrefixAttr + handle); ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return nodeDefault
}
