package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

// HTTPOCRProvider recognizes text via an OCR HTTP service that accepts
// a base64 data URI and returns text plus a confidence score.
type HTTPOCRProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ api.OCRProvider = (*HTTPOCRProvider)(nil)

func NewHTTPOCRProvider(baseURL, apiKey string, client *http.Client) *HTTPOCRProvider {
	if client == nil {
		// OCR on large scans is slow; give it more headroom than the
		// other providers.
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPOCRProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (p *HTTPOCRProvider) Recognize(ctx context.Context, imageDataURI, language string) (api.OCRResult, error) {
	body, err := json.Marshal(map[string]string{
		"image":    imageDataURI,
		"language": language,
	})
	if err != nil {
		return api.OCRResult{}, fmt.Errorf("ocr: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/recognize", bytes.NewReader(body))
	if err != nil {
		return api.OCRResult{}, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return api.OCRResult{}, fmt.Errorf("ocr: recognize: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.OCRResult{}, fmt.Errorf("ocr: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return api.OCRResult{}, fmt.Errorf("ocr: recognize returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result api.OCRResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return api.OCRResult{}, fmt.Errorf("ocr: decode response: %w", err)
	}
	return result, nil
}
