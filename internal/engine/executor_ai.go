package engine

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/graflow/graflow/pkg/api"
)

// execOCR recognizes text in a base64 data URI produced upstream
// (typically by an emailAttachment node). Confidence is normalized to a
// 0-1 scale; failures never abort the run.
func (e *Engine) execOCR(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	input, _ := resolveInput(rc, node, "input-image")
	dataURI := cast.ToString(input)
	if !strings.HasPrefix(dataURI, "data:") {
		return api.ValidationFailure("ocr: input must be a base64 data URI"), nil
	}
	if e.ocr == nil {
		return api.ValidationFailure("ocr: provider not configured"), nil
	}

	language := node.Data.Language
	if language == "" {
		language = "eng"
	}

	started := time.Now()
	res, err := e.ocr.Recognize(ctx, dataURI, language)
	elapsed := time.Since(started)
	if err != nil {
		return map[string]any{
			"success":    false,
			"error":      err.Error(),
			"durationMs": elapsed.Milliseconds(),
		}, nil
	}

	confidence := res.Confidence
	if confidence > 1 {
		confidence = confidence / 100
	}

	rc.set(node.ID+slotText, res.Text)
	return map[string]any{
		"success":    true,
		"text":       res.Text,
		"confidence": confidence,
		"durationMs": elapsed.Milliseconds(),
	}, nil
}

// execAI sends a chat-completion request with the node's prompt as the
// system message and the wired input as the user message.
func (e *Engine) execAI(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	prompt := node.Data.Prompt
	if v, ok := resolveInput(rc, node, "prompt"); ok {
		if s := cast.ToString(v); s != "" {
			prompt = s
		}
	}
	if prompt == "" {
		return api.ValidationFailure("ai: prompt is required"), nil
	}
	if e.llm == nil {
		return api.ValidationFailure("ai: provider not configured"), nil
	}

	input, _ := resolveInput(rc, node, "input")
	userInput := cast.ToString(input)

	started := time.Now()
	completion, err := e.llm.Complete(ctx, prompt, userInput)
	elapsed := time.Since(started)
	if err != nil {
		return map[string]any{
			"success":    false,
			"error":      err.Error(),
			"prompt":     prompt,
			"durationMs": elapsed.Milliseconds(),
		}, nil
	}

	rc.set(node.ID+slotCompletion, completion)
	return completion, nil
}
