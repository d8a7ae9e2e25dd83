package graflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graflow/graflow/pkg/api"
)

func TestGraphBuilderAssemblesGraph(t *testing.T) {
	graph := NewGraph().
		Start("start", "invoice_email", map[string]any{"category": "invoice"}).
		Text("note", "hello").
		Int("limit", 25).
		ConditionalFlow("cmp", "greaterThan", "10", "5").
		ConsoleLog("log").
		Connect("note", "log", "note-output", "input-value").
		Flow("start", "cmp").
		FlowBranch("cmp", "true", "note").
		Flow("note", "log").
		Build()

	require.Len(t, graph.Nodes, 5)
	require.Len(t, graph.Edges, 4)

	start, ok := graph.NodeByID("start")
	require.True(t, ok)
	require.Equal(t, api.NodeCondition, start.Type)
	require.True(t, start.Data.IsStartingPoint)
	require.Equal(t, "invoice_email", start.Data.ReturnText)
	require.Equal(t, "invoice", start.Data.EmailAttributes["category"])

	limit, ok := graph.NodeByID("limit")
	require.True(t, ok)
	v, err := limit.Data.Value.Int64()
	require.NoError(t, err)
	require.EqualValues(t, 25, v)

	branch := graph.Edges[2]
	require.Equal(t, "cmp", branch.Source)
	require.Equal(t, api.ExecutionHandle("true"), branch.SourceHandle)
	require.True(t, branch.IsExecutionLink)

	data := graph.Edges[0]
	require.False(t, data.IsExecutionLink)
	require.Equal(t, "input-value", data.TargetHandle)
}

func TestGraphBuilderRejectsDuplicateIDs(t *testing.T) {
	require.PanicsWithValue(t, `graflow: duplicate node id "n"`, func() {
		NewGraph().Text("n", "a").Text("n", "b")
	})
}

func TestGraphBuilderRejectsEmptyID(t *testing.T) {
	require.Panics(t, func() {
		NewGraph().Text("", "a")
	})
}
