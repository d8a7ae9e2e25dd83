package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cast"

	"github.com/graflow/graflow/internal/httpcall"
	"github.com/graflow/graflow/pkg/api"
)

// execAPICall is the one executor allowed to fail the run: transport
// and remote API errors propagate to the orchestration boundary with a
// fully composed diagnostic so the run-level error names the call that
// failed.
func (e *Engine) execAPICall(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	if rc.cfg == nil {
		return nil, errors.New("apiCall: no backend config supplied for this run")
	}

	spec := httpcall.CallSpec{
		Method:     node.Data.Method,
		Path:       node.Data.Path,
		PathParams: map[string]string{},
		Query:      map[string]string{},
	}

	for _, p := range node.Data.Parameters {
		value, ok := e.resolveParameter(rc, node, p)
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("apiCall %s: missing required parameter %q", node.ID, p.Name)
			}
			continue
		}
		s := cast.ToString(value)
		if p.In == "path" {
			spec.PathParams[p.Name] = s
		} else {
			spec.Query[p.Name] = s
		}
	}

	spec.Body = e.buildBody(rc, node)

	result, err := e.caller.Do(ctx, rc.info, node.ID, *rc.cfg, spec, e.observer)
	if err != nil {
		return nil, err
	}

	full := result.Map()
	rc.set(node.ID+slotOutput, full)
	rc.set(node.ID+slotResponse, full)
	rc.set(node.ID+slotBody, result.Body)
	rc.set(node.ID+slotStatus, result.Status)

	return result.Body, nil
}

// resolveParameter finds a value for a declared parameter: a wired
// param-<name> or <name> port, then the matching task attribute, then
// the declared default.
func (e *Engine) resolveParameter(rc *runContext, node api.Node, p api.ParameterSpec) (any, bool) {
	if v, ok := resolveInput(rc, node, "param-"+p.Name); ok {
		return v, true
	}
	if v, ok := resolveInput(rc, node, p.Name); ok {
		return v, true
	}
	if v, ok := rc.lookup(api.PortPrefixAttr + p.Name); ok {
		return v, true
	}
	if p.Default != "" {
		return p.Default, true
	}
	return nil, false
}

// buildBody assembles the request body: a single wired "body" port wins
// (JSON-parsed when it arrived as text); otherwise the declared body
// schema is filled field by field with each value coerced to the
// field's declared type, and default-body values plug remaining gaps.
func (e *Engine) buildBody(rc *runContext, node api.Node) any {
	if v, ok := resolveInput(rc, node, "body"); ok {
		return httpcall.ParseBody(v)
	}

	if len(node.Data.BodySchema) == 0 {
		if len(node.Data.DefaultBody) > 0 {
			return node.Data.DefaultBody
		}
		return nil
	}

	body := make(map[string]any, len(node.Data.BodySchema))
	for _, field := range node.Data.BodySchema {
		v, ok := resolveInput(rc, node, api.PortPrefixBody+field.Name)
		if !ok {
			continue
		}
		body[field.Name] = httpcall.Coerce(v, field.Type)
	}
	for k, v := range node.Data.DefaultBody {
		if _, ok := body[k]; !ok {
			body[k] = v
		}
	}
	return body
}
