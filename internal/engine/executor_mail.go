package engine

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cast"

	"github.com/graflow/graflow/pkg/api"
)

// execSendMail builds a message from wired ports (falling back to node
// defaults) and sends it through the email transport.
func (e *Engine) execSendMail(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	d := node.Data
	msg := api.EmailMessage{
		Recipient: stringInput(rc, node, "recipient", d.Recipient),
		Sender:    stringInput(rc, node, "sender", d.Sender),
		Subject:   stringInput(rc, node, "subject", d.Subject),
		Body:      stringInput(rc, node, "body", d.Body),
		CC:        stringInput(rc, node, "cc", d.CC),
		BCC:       stringInput(rc, node, "bcc", d.BCC),
		Headers:   d.Headers,
	}
	if v, ok := resolveInput(rc, node, "headers"); ok {
		if hdrs := cast.ToStringMapString(v); len(hdrs) > 0 {
			msg.Headers = hdrs
		}
	}

	// sendMail failures always carry the sent flag so downstream ports
	// bound to it read false rather than nothing.
	if msg.Recipient == "" {
		return map[string]any{"sent": false, "error": "sendMail: recipient is required"}, nil
	}
	if e.mail == nil {
		return map[string]any{"sent": false, "error": "sendMail: email transport not configured"}, nil
	}

	resp, err := e.mail.Send(ctx, msg)
	if err != nil {
		return map[string]any{"sent": false, "error": err.Error()}, nil
	}
	return map[string]any{"sent": true, "email": msg, "response": resp}, nil
}

// execEmailAttachment fetches one attachment of a stored email and
// re-encodes it as a base64 data URI, so downstream nodes (OCR) need no
// further network access to read it.
func (e *Engine) execEmailAttachment(ctx context.Context, rc *runContext, node api.Node) (any, error) {
	emailID := stringInput(rc, node, "email_id", node.Data.EmailID)
	attachmentID := stringInput(rc, node, "attachment_id", node.Data.AttachmentID)

	if emailID == "" {
		return api.ValidationFailure("emailAttachment: email_id is required"), nil
	}
	if attachmentID == "" {
		return api.ValidationFailure("emailAttachment: attachment_id is required"), nil
	}
	if e.mail == nil {
		return api.ValidationFailure("emailAttachment: email transport not configured"), nil
	}

	data, contentType, err := e.mail.FetchAttachment(ctx, emailID, attachmentID)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	rc.set(node.ID+slotAttachment, dataURI)

	return map[string]any{
		"success":     true,
		"dataUri":     dataURI,
		"contentType": contentType,
		"size":        len(data),
	}, nil
}
