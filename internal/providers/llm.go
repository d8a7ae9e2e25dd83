package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/graflow/graflow/pkg/api"
)

const defaultLLMModel = "gpt-4o-mini"

// OpenAILLMProvider produces chat completions through an OpenAI-style
// chat/completions endpoint.
type OpenAILLMProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ api.LLMProvider = (*OpenAILLMProvider)(nil)

func NewOpenAILLMProvider(baseURL, apiKey, model string, client *http.Client) *OpenAILLMProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = defaultLLMModel
	}
	if client == nil {
		client = &http.Client{Timeout: defaultProviderTimeout}
	}
	return &OpenAILLMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

func (p *OpenAILLMProvider) Complete(ctx context.Context, systemPrompt, userInput string) (string, error) {
	messages := []map[string]string{
		{"role": "system", "content": systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, map[string]string{"role": "user", "content": userInput})
	}

	body, err := json.Marshal(map[string]any{
		"model":    p.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: complete: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: complete returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: response carries no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
