package httpcall

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

const bodyPreviewLimit = 300

// Client executes apiCall requests against a backend config. The base
// HTTP client supplies defaults; timeout, proxy, compression and TLS
// policy from the config are applied per request so one engine can
// serve runs with different backends.
type Client struct {
	base       *http.Client
	tokens     *TokenCache
	production bool
}

// NewClient wraps the given base client. A nil base gets a conservative
// default timeout.
func NewClient(base *http.Client, production bool) *Client {
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base:       base,
		tokens:     NewTokenCache(),
		production: production,
	}
}

// Tokens exposes the shared OAuth2 token cache.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// Result is a completed API response in the shape node ports consume.
type Result struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       any
}

// Map returns the full-response form stored in the run context.
func (r *Result) Map() map[string]any {
	return map[string]any{
		"status":     r.Status,
		"statusText": r.StatusText,
		"headers":    r.Headers,
		"body":       r.Body,
	}
}

// Do executes the call. Transport failures are retried per the config's
// retry count; a non-2xx response is never retried and becomes an
// APICallError carrying status, body-derived detail and the request
// line, with a body preview outside production.
func (c *Client) Do(ctx context.Context, run api.RunInfo, nodeID string, cfg api.BackendConfig, spec CallSpec, obs api.Observer) (*Result, error) {
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	callURL := BuildURL(cfg.BaseURL, spec)

	var payload []byte
	if spec.Body != nil {
		var err error
		payload, err = json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("apiCall %s: encode request body: %w", nodeID, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, nil)
	if err != nil {
		return nil, fmt.Errorf("apiCall %s: build request: %w", nodeID, err)
	}
	for k, v := range cfg.DefaultHeaders {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(ctx, req, cfg)

	obs.OnAPIRequest(ctx, run, api.APIRequest{
		NodeID:  nodeID,
		Method:  method,
		URL:     callURL,
		Headers: headerMap(req.Header),
		Body:    spec.Body,
	})

	client := c.clientFor(cfg)
	attempts := cfg.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	started := time.Now()
	var resp *http.Response
	for attempt := 1; attempt <= attempts; attempt++ {
		if payload != nil {
			req.Body = io.NopCloser(bytes.NewReader(payload))
			req.ContentLength = int64(len(payload))
		}
		resp, err = client.Do(req)
		if err == nil {
			break
		}
		if attempt == attempts {
			transportErr := fmt.Errorf("apiCall %s: %s %s: %w", nodeID, method, callURL, err)
			obs.OnAPIError(ctx, run, api.APIRequest{NodeID: nodeID, Method: method, URL: callURL}, transportErr)
			return nil, transportErr
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apiCall %s: read response: %w", nodeID, err)
	}

	var body any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = string(raw)
		}
	}

	result := &Result{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headerMap(resp.Header),
		Body:       body,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &api.APICallError{
			Status:     resp.StatusCode,
			StatusText: result.StatusText,
			Method:     method,
			URL:        callURL,
			Detail:     extractDetail(body),
		}
		if !c.production {
			apiErr.BodyPreview = truncate(string(raw), bodyPreviewLimit)
		}
		obs.OnAPIError(ctx, run, api.APIRequest{NodeID: nodeID, Method: method, URL: callURL}, apiErr)
		return nil, apiErr
	}

	obs.OnAPIResponse(ctx, run, api.APIResponse{
		NodeID:  nodeID,
		Method:  method,
		URL:     callURL,
		Status:  resp.StatusCode,
		Body:    body,
		Latency: time.Since(started),
	})
	return result, nil
}

// clientFor layers the config's timeout, proxy, compression and TLS
// policy over the base client without mutating it.
func (c *Client) clientFor(cfg api.BackendConfig) *http.Client {
	client := *c.base

	if cfg.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	disableCompression := cfg.Compression != nil && !*cfg.Compression
	if !cfg.TLSSkipVerify && cfg.Proxy == "" && !disableCompression {
		return &client
	}

	// The settings below need a *http.Transport to attach to. An opaque
	// RoundTripper supplied by the caller stays in place untouched.
	var transport *http.Transport
	switch base := client.Transport.(type) {
	case *http.Transport:
		transport = base.Clone()
	case nil:
		transport = http.DefaultTransport.(*http.Transport).Clone()
	default:
		return &client
	}

	if cfg.TLSSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	transport.DisableCompression = disableCompression

	client.Transport = transport
	return &client
}

// extractDetail pulls a human-readable message out of a structured
// error body, trying the field names remote APIs commonly use.
func extractDetail(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error", "errorMessage", "errors"} {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
	}
	return ""
}

func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
