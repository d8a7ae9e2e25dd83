package api

import "context"

// EmailMessage is the payload sent through an EmailTransport.
type EmailMessage struct {
	Recipient string            `json:"recipient"`
	Sender    string            `json:"sender,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body,omitempty"`
	CC        string            `json:"cc,omitempty"`
	BCC       string            `json:"bcc,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// EmailTransport is the remote email capability: send a message and
// fetch attachment bytes. The engine treats it as a black-box RPC.
type EmailTransport interface {
	// Send delivers the message and returns the provider response,
	// which is expected to carry at least an "id" field.
	Send(ctx context.Context, msg EmailMessage) (map[string]any, error)

	// FetchAttachment downloads one attachment of a stored email and
	// returns its raw bytes and content type.
	FetchAttachment(ctx context.Context, emailID, attachmentID string) ([]byte, string, error)
}

// OCRResult is the outcome of a text recognition call.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCRProvider recognizes text in an image supplied as a data URI.
type OCRProvider interface {
	Recognize(ctx context.Context, imageDataURI, language string) (OCRResult, error)
}

// LLMProvider produces a chat completion for a system prompt and user input.
type LLMProvider interface {
	Complete(ctx context.Context, systemPrompt, userInput string) (string, error)
}
