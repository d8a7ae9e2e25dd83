package graflow

import (
	"encoding/json"
	"fmt"

	"github.com/graflow/graflow/pkg/api"
)

// GraphBuilder provides a fluent API for assembling flow graphs in
// code, mostly useful in tests and examples:
//
//	graph := graflow.NewGraph().
//	    Start("start", "invoice_email", nil).
//	    Text("greeting", "hello").
//	    ConsoleLog("log").
//	    Connect("greeting", "log", "greeting-output", "input-value").
//	    Flow("start", "log").
//	    Build()
type GraphBuilder struct {
	graph api.Graph
	seen  map[string]struct{}
}

// NewGraph creates an empty graph builder.
func NewGraph() *GraphBuilder {
	return &GraphBuilder{seen: make(map[string]struct{})}
}

// Node appends a node with arbitrary data. Most callers use the typed
// helpers instead.
func (b *GraphBuilder) Node(id string, nodeType NodeType, data NodeData) *GraphBuilder {
	if id == "" {
		panic("graflow: node id must not be empty")
	}
	if _, ok := b.seen[id]; ok {
		panic(fmt.Sprintf("graflow: duplicate node id %q", id))
	}
	b.seen[id] = struct{}{}
	b.graph.Nodes = append(b.graph.Nodes, api.Node{ID: id, Type: nodeType, Data: data})
	return b
}

// Start appends a condition node flagged as a starting point for the
// given task type, with optional email-attribute defaults.
func (b *GraphBuilder) Start(id, taskType string, emailAttributes map[string]any) *GraphBuilder {
	return b.Node(id, api.NodeCondition, api.NodeData{
		IsStartingPoint: true,
		ReturnText:      taskType,
		EmailAttributes: emailAttributes,
	})
}

// Text appends a literal text node.
func (b *GraphBuilder) Text(id, text string) *GraphBuilder {
	return b.Node(id, api.NodeText, api.NodeData{Text: text})
}

// Int appends a literal integer node.
func (b *GraphBuilder) Int(id string, value int64) *GraphBuilder {
	return b.Node(id, api.NodeInt, api.NodeData{
		Value: json.Number(fmt.Sprintf("%d", value)),
	})
}

// ConsoleLog appends a diagnostic passthrough node.
func (b *GraphBuilder) ConsoleLog(id string) *GraphBuilder {
	return b.Node(id, api.NodeConsoleLog, api.NodeData{})
}

// ConditionalFlow appends a branching node.
func (b *GraphBuilder) ConditionalFlow(id, conditionType, inputValue, compareValue string) *GraphBuilder {
	return b.Node(id, api.NodeConditionalFlow, api.NodeData{
		ConditionType: conditionType,
		InputValue:    inputValue,
		CompareValue:  compareValue,
	})
}

// APICall appends an API-call node with the given data, which should
// carry at least Method and Path.
func (b *GraphBuilder) APICall(id string, data NodeData) *GraphBuilder {
	return b.Node(id, api.NodeAPICall, data)
}

// SendMail appends an email-sending node.
func (b *GraphBuilder) SendMail(id string, data NodeData) *GraphBuilder {
	return b.Node(id, api.NodeSendMail, data)
}

// AI appends an LLM completion node with the given system prompt.
func (b *GraphBuilder) AI(id, prompt string) *GraphBuilder {
	return b.Node(id, api.NodeAI, api.NodeData{Prompt: prompt})
}

// OCR appends a text-recognition node.
func (b *GraphBuilder) OCR(id, language string) *GraphBuilder {
	return b.Node(id, api.NodeOCR, api.NodeData{Language: language})
}

// EmailAttachment appends an attachment-fetching node.
func (b *GraphBuilder) EmailAttachment(id string) *GraphBuilder {
	return b.Node(id, api.NodeEmailAttachment, api.NodeData{})
}

// Connect adds a data edge copying sourceHandle on source to
// targetHandle on target after source executes.
func (b *GraphBuilder) Connect(source, target, sourceHandle, targetHandle string) *GraphBuilder {
	b.graph.Edges = append(b.graph.Edges, api.Edge{
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	})
	return b
}

// Flow adds a control-flow edge from source to target.
func (b *GraphBuilder) Flow(source, target string) *GraphBuilder {
	b.graph.Edges = append(b.graph.Edges, api.Edge{
		Source:          source,
		Target:          target,
		IsExecutionLink: true,
	})
	return b
}

// FlowBranch adds a control-flow edge followed only when a
// conditionalFlow source resolves to the given branch ("true", "false"
// or "default").
func (b *GraphBuilder) FlowBranch(source, branch, target string) *GraphBuilder {
	b.graph.Edges = append(b.graph.Edges, api.Edge{
		Source:          source,
		Target:          target,
		SourceHandle:    api.ExecutionHandle(branch),
		IsExecutionLink: true,
	})
	return b
}

// Build returns the assembled graph.
func (b *GraphBuilder) Build() Graph {
	return b.graph
}
