// Package providers holds HTTP clients for the remote capabilities the
// engine delegates to: email transport, OCR, and LLM completion. Each
// is a thin request/response wrapper; the engine treats them as black
// boxes behind the pkg/api interfaces.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

const defaultProviderTimeout = 60 * time.Second

// HTTPMailTransport sends email and fetches attachments through a
// mail-service HTTP API.
type HTTPMailTransport struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ api.EmailTransport = (*HTTPMailTransport)(nil)

func NewHTTPMailTransport(baseURL, apiKey string, client *http.Client) *HTTPMailTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultProviderTimeout}
	}
	return &HTTPMailTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (t *HTTPMailTransport) Send(ctx context.Context, msg api.EmailMessage) (map[string]any, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("mail: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mail: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mail: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("mail: send returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("mail: decode response: %w", err)
		}
	}
	return out, nil
}

func (t *HTTPMailTransport) FetchAttachment(ctx context.Context, emailID, attachmentID string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/messages/%s/attachments/%s",
		t.baseURL, url.PathEscape(emailID), url.PathEscape(attachmentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("mail: build attachment request: %w", err)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("mail: fetch attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("mail: attachment fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("mail: read attachment: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
