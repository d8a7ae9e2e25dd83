package engine

import (
	"strconv"
	"strings"

	"github.com/graflow/graflow/pkg/api"
)

// Context-slot suffixes for node outputs that expose a dedicated port.
// Executors write these slots; the resolver reads them.
const (
	slotOutput     = "-output"
	slotResponse   = "-output-response"
	slotBody       = "-output-body"
	slotStatus     = "-output-status"
	slotAttachment = "-attachment"
	slotText       = "-text"
	slotCompletion = "-completion"
	slotResult     = "-result"
)

// resolvePort answers "what value sits at this output port" for a node,
// following the handle-naming convention in a fixed precedence order.
// The layered convention lets every node type expose several logical
// outputs without a shared schema; an unknown handle falls back to the
// node's generic output slot.
func resolvePort(rc *runContext, node api.Node, handle string) (any, bool) {
	switch {
	case node.Type == api.NodeCondition && api.IsAttrHandle(handle):
		if v, ok := rc.lookup(handle); ok {
			return v, true
		}
		return resolveAttachmentIndex(rc, handle)

	case node.Type == api.NodeInt && handle == "attr-int":
		if i, err := node.Data.Value.Int64(); err == nil {
			return i, true
		}
		if f, err := node.Data.Value.Float64(); err == nil {
			return f, true
		}
		return nil, false

	case node.Type == api.NodeAPICall && handle == "output":
		return rc.lookup(node.ID + slotOutput)

	case node.Type == api.NodeAPICall && strings.HasPrefix(handle, api.PortPrefixOutput):
		return rc.lookup(node.ID + "-" + handle)

	case node.Type == api.NodeEmailAttachment && handle == "output-attachment":
		return rc.lookup(node.ID + slotAttachment)

	case node.Type == api.NodeOCR && handle == "output-text":
		return rc.lookup(node.ID + slotText)

	case node.Type == api.NodeAI && handle == "attr-output":
		return rc.lookup(node.ID + slotCompletion)

	case node.Type == api.NodeConditionalFlow && handle == "output-result":
		return rc.lookup(node.ID + slotResult)

	case node.Type == api.NodeText:
		// A text node's output is its literal regardless of handle.
		return node.Data.Text, true

	case node.Type == api.NodeAPICall && strings.HasPrefix(handle, api.PortPrefixBody):
		if v, ok := rc.lookup(handle); ok {
			return v, true
		}
		field := strings.TrimPrefix(handle, api.PortPrefixBody)
		if v, ok := node.Data.DefaultBody[field]; ok {
			return v, true
		}
		return nil, false
	}

	return rc.lookup(api.PortPrefixOutput + node.ID)
}

// resolveAttachmentIndex handles attr-attachment-<n> ports that were
// not individually seeded (for example when the context was trimmed):
// it indexes into the seeded attachment list instead.
func resolveAttachmentIndex(rc *runContext, handle string) (any, bool) {
	idx, ok := strings.CutPrefix(handle, "attr-attachment-")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return nil, false
	}
	v, ok := rc.lookup("attr-attachments")
	if !ok {
		return nil, false
	}
	atts, ok := v.([]api.TaskAttachment)
	if !ok || n < 0 || n >= len(atts) {
		return nil, false
	}
	return atts[n].ID, true
}

// resolveInput finds a value for a named input of a node: first a value
// already wired into the context under the handle, then the incoming
// data edge walked back to its source port.
func resolveInput(rc *runContext, node api.Node, handle string) (any, bool) {
	if v, ok := rc.lookup(handle); ok {
		return v, true
	}
	edge, ok := rc.incomingEdge(node.ID, handle)
	if !ok {
		return nil, false
	}
	src, ok := rc.nodesByID[edge.Source]
	if !ok {
		return nil, false
	}
	return resolvePort(rc, src, edge.SourceHandle)
}
