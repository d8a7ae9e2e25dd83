package httpcall

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// CallSpec is the transport-agnostic description of one API call,
// assembled by the apiCall executor from the node's declaration and
// the values wired into its ports.
type CallSpec struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      map[string]string
	Body       any
}

// BuildURL joins the base URL with the call path, substituting {param}
// placeholders and appending query parameters.
func BuildURL(baseURL string, spec CallSpec) string {
	path := spec.Path
	for name, value := range spec.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	full := strings.TrimRight(baseURL, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		full += "/"
	}
	full += path

	if len(spec.Query) > 0 {
		q := url.Values{}
		for k, v := range spec.Query {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + q.Encode()
	}
	return full
}

// ParseBody normalizes a value wired into the single "body" port:
// strings that hold JSON become structured data, everything else passes
// through unchanged.
func ParseBody(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	return s
}

// Coerce converts a wired value to the type a body schema declares for
// its field. Array coercion tries JSON first and falls back to a comma
// split; object coercion tries JSON. A value that cannot be coerced is
// passed through unchanged rather than dropped.
func Coerce(v any, declaredType string) any {
	switch declaredType {
	case "integer":
		if i, err := cast.ToInt64E(v); err == nil {
			return i
		}
	case "number":
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	case "boolean":
		if b, ok := coerceBool(v); ok {
			return b
		}
	case "array":
		return coerceArray(v)
	case "object":
		return coerceObject(v)
	case "string":
		return cast.ToString(v)
	}
	return v
}

func coerceBool(v any) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(cast.ToString(v))) {
	case "yes", "y", "on", "true", "1":
		return true, true
	case "no", "n", "off", "false", "0":
		return false, true
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b, true
	}
	return false, false
}

func coerceArray(v any) any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		trimmed := strings.TrimSpace(t)
		var parsed []any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
		parts := strings.Split(t, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return []any{v}
}

func coerceObject(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &parsed); err == nil {
			return parsed
		}
	}
	return v
}
