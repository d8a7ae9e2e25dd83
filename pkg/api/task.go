package api

// Task is the concrete work item a flow runs against, typically an
// inbound email. It is immutable for the duration of a run.
type Task struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	SourceID       string           `json:"sourceId,omitempty"`
	SenderEmail    string           `json:"senderEmail,omitempty"`
	RecipientEmail string           `json:"recipientEmail,omitempty"`
	SenderName     string           `json:"senderName,omitempty"`
	RecipientName  string           `json:"recipientName,omitempty"`
	Subject        string           `json:"subject,omitempty"`
	Body           string           `json:"body,omitempty"`
	Date           string           `json:"date,omitempty"`
	Attachments    []TaskAttachment `json:"attachments,omitempty"`
}

// TaskAttachment describes one attachment carried by a task.
type TaskAttachment struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Extension string `json:"extension,omitempty"`
	Mime      string `json:"mime,omitempty"`
	CID       string `json:"cid,omitempty"`
}

// Attributes returns the task fields that can seed attr-* ports on a
// starting node, keyed by field name.
func (t Task) Attributes() map[string]any {
	attrs := map[string]any{
		"email_id":        t.SourceID,
		"sender_email":    t.SenderEmail,
		"recipient_email": t.RecipientEmail,
		"sender_name":     t.SenderName,
		"recipient_name":  t.RecipientName,
		"subject":         t.Subject,
		"body":            t.Body,
		"date":            t.Date,
	}
	for k, v := range attrs {
		if s, ok := v.(string); ok && s == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
