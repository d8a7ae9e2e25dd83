package api

import (
	"encoding/json"
	"strings"
)

// NodeType identifies the kind of work a node performs.
type NodeType string

const (
	NodeCondition       NodeType = "condition"
	NodeAPICall         NodeType = "apiCall"
	NodeText            NodeType = "text"
	NodeInt             NodeType = "int"
	NodeSendMail        NodeType = "sendMail"
	NodeEmailAttachment NodeType = "emailAttachment"
	NodeOCR             NodeType = "ocr"
	NodeConsoleLog      NodeType = "consoleLog"
	NodeAI              NodeType = "ai"
	NodeConditionalFlow NodeType = "conditionalFlow"
)

// Node is a typed unit of work in a workflow graph.
// The meaning of Data fields depends on Type; unused fields stay zero.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

// NodeData carries the type-specific attributes of a node. The graph
// arrives as JSON produced by the visual editor, so all fields are
// optional and only the ones relevant to the node's type are set.
type NodeData struct {
	// condition
	IsStartingPoint bool           `json:"isStartingPoint,omitempty"`
	ConditionText   string         `json:"conditionText,omitempty"`
	ReturnText      string         `json:"returnText,omitempty"`
	EmailAttributes map[string]any `json:"emailAttributes,omitempty"`

	// text / int literals
	Text  string      `json:"text,omitempty"`
	Value json.Number `json:"value,omitempty"`

	// apiCall
	Method      string           `json:"method,omitempty"`
	Path        string           `json:"path,omitempty"`
	Parameters  []ParameterSpec  `json:"parameters,omitempty"`
	BodySchema  []BodyFieldSpec  `json:"bodySchema,omitempty"`
	DefaultBody map[string]any   `json:"defaultBody,omitempty"`

	// sendMail defaults; wired ports override these at run time.
	Recipient string            `json:"recipient,omitempty"`
	Sender    string            `json:"sender,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body,omitempty"`
	CC        string            `json:"cc,omitempty"`
	BCC       string            `json:"bcc,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`

	// emailAttachment
	EmailID      string `json:"email_id,omitempty"`
	AttachmentID string `json:"attachment_id,omitempty"`

	// ocr
	Language string `json:"language,omitempty"`

	// ai
	Prompt string `json:"prompt,omitempty"`

	// conditionalFlow
	ConditionType string `json:"conditionType,omitempty"`
	InputValue    any    `json:"inputValue,omitempty"`
	CompareValue  any    `json:"compareValue,omitempty"`
}

// ParameterSpec declares a path or query parameter of an apiCall node.
type ParameterSpec struct {
	Name     string `json:"name"`
	In       string `json:"in"` // "path" or "query"
	Required bool   `json:"required,omitempty"`
	Default  string `json:"default,omitempty"`
}

// BodyFieldSpec declares one field of an apiCall request body together
// with the type the wired value is coerced to.
type BodyFieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"` // string, integer, number, boolean, array, object
}

// Edge is a directed connection between two node ports.
//
// Edges with IsExecutionLink=true are control flow: they decide which
// node runs next. All other edges are pure data flow, copied from the
// source port to the target port once the source node has finished.
type Edge struct {
	Source          string `json:"source"`
	Target          string `json:"target"`
	SourceHandle    string `json:"sourceHandle,omitempty"`
	TargetHandle    string `json:"targetHandle,omitempty"`
	IsExecutionLink bool   `json:"isExecutionLink,omitempty"`
}

// Graph is the static workflow definition: nodes connected by edges.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given id, if present.
func (g *Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Port kind prefixes used by the handle naming convention.
const (
	PortPrefixAttr   = "attr-"
	PortPrefixOutput = "output-"
	PortPrefixBody   = "body-"
	PortPrefixExec   = "execution-"
)

// ExecutionHandle builds the source handle a conditionalFlow node uses
// for the branch carrying the given result ("true", "false", "default").
func ExecutionHandle(result string) string {
	return PortPrefixExec + result
}

// IsAttrHandle reports whether the handle addresses a task attribute port.
func IsAttrHandle(handle string) bool {
	return strings.HasPrefix(handle, PortPrefixAttr)
}
