package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graflow/graflow/pkg/api"
)

func TestHTTPMailTransportSend(t *testing.T) {
	var gotAuth string
	var gotMsg api.EmailMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsg))
		json.NewEncoder(w).Encode(map[string]any{"id": "msg-9"})
	}))
	defer server.Close()

	transport := NewHTTPMailTransport(server.URL, "mail-key", nil)
	resp, err := transport.Send(context.Background(), api.EmailMessage{
		Recipient: "ops@example.com",
		Subject:   "done",
	})
	require.NoError(t, err)
	require.Equal(t, "msg-9", resp["id"])
	require.Equal(t, "Bearer mail-key", gotAuth)
	require.Equal(t, "ops@example.com", gotMsg.Recipient)
}

func TestHTTPMailTransportSendErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	transport := NewHTTPMailTransport(server.URL, "", nil)
	_, err := transport.Send(context.Background(), api.EmailMessage{Recipient: "a@b.c"})
	require.ErrorContains(t, err, "429")
	require.ErrorContains(t, err, "quota exceeded")
}

func TestHTTPMailTransportFetchAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/mail-7/attachments/att-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-fake"))
	}))
	defer server.Close()

	transport := NewHTTPMailTransport(server.URL, "", nil)
	data, contentType, err := transport.FetchAttachment(context.Background(), "mail-7", "att-9")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-fake"), data)
	require.Equal(t, "application/pdf", contentType)
}

func TestHTTPOCRProviderRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recognize", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "deu", req["language"])
		json.NewEncoder(w).Encode(api.OCRResult{Text: "Summe: 12,50", Confidence: 0.97})
	}))
	defer server.Close()

	ocr := NewHTTPOCRProvider(server.URL, "", nil)
	res, err := ocr.Recognize(context.Background(), "data:image/png;base64,xxxx", "deu")
	require.NoError(t, err)
	require.Equal(t, "Summe: 12,50", res.Text)
	require.Equal(t, 0.97, res.Confidence)
}

func TestOpenAILLMProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer llm-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "user", req.Messages[1].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "category: invoice"}},
			},
		})
	}))
	defer server.Close()

	llm := NewOpenAILLMProvider(server.URL, "llm-key", "test-model", nil)
	out, err := llm.Complete(context.Background(), "Classify this email", "Dear billing team")
	require.NoError(t, err)
	require.Equal(t, "category: invoice", out)
}

func TestOpenAILLMProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	llm := NewOpenAILLMProvider(server.URL, "k", "m", nil)
	_, err := llm.Complete(context.Background(), "p", "u")
	require.ErrorContains(t, err, "429")
	require.ErrorContains(t, err, "rate limited")
}
