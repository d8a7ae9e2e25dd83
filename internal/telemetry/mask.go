// Package telemetry turns engine observer callbacks into flat execution
// events, masks secrets, and delivers the events to a sink without
// blocking the run.
package telemetry

import (
	"strings"
)

const (
	maskedValue = "***"

	// maxStringLen bounds any single string stored in an event payload.
	maxStringLen = 512

	// maxDepth bounds payload sanitization so a self-referencing value
	// cannot recurse forever.
	maxDepth = 8
)

// sensitiveFragments flag a payload key as secret-bearing when the key
// contains any of them, case-insensitively.
var sensitiveFragments = []string{
	"password",
	"token",
	"secret",
	"apikey",
	"api_key",
	"api-key",
	"auth",
	"cookie",
	"credential",
}

// exactSensitive are short keys too generic for fragment matching.
var exactSensitive = map[string]struct{}{
	"key": {},
	"pwd": {},
}

// SensitiveKey reports whether a payload or header key should have its
// value masked before emission.
func SensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := exactSensitive[lower]; ok {
		return true
	}
	for _, frag := range sensitiveFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of v safe to emit: values under sensitive keys
// are replaced with a mask, JWT-shaped strings are masked wherever they
// appear, and long strings are truncated. The input is never mutated.
func Sanitize(v any) any {
	return sanitizeValue(v, 0)
}

// SanitizeMap sanitizes a string map in place-of-copy form, used for
// header maps on API events.
func SanitizeMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if SensitiveKey(k) || looksLikeJWT(v) {
			out[k] = maskedValue
			continue
		}
		out[k] = truncateString(v)
	}
	return out
}

func sanitizeValue(v any, depth int) any {
	if depth > maxDepth {
		return maskedValue
	}
	switch t := v.(type) {
	case string:
		if looksLikeJWT(t) {
			return maskedValue
		}
		return truncateString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			if SensitiveKey(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = sanitizeValue(inner, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			if SensitiveKey(k) || looksLikeJWT(inner) {
				out[k] = maskedValue
				continue
			}
			out[k] = truncateString(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = sanitizeValue(inner, depth+1)
		}
		return out
	default:
		return v
	}
}

// looksLikeJWT matches the three-segment base64url shape of a JSON Web
// Token, whose header segment always begins with "eyJ".
func looksLikeJWT(s string) bool {
	if !strings.HasPrefix(s, "eyJ") {
		return false
	}
	return strings.Count(s, ".") == 2
}

func truncateString(s string) string {
	if len(s) <= maxStringLen {
		return s
	}
	return s[:maxStringLen] + "..."
}
