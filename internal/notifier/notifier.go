// Package notifier hands transactional mail over to the external
// delivery worker. This service never talks SMTP itself; it publishes
// mail requests to the broker and the worker on the other side renders
// the template and sends the message.
package notifier

import "context"

// Notifier requests delivery of a templated mail. A failed Send is
// reported to the caller but must not undo whatever the caller already
// issued (an activation token stays valid even if its mail is lost).
type Notifier interface {
	Send(ctx context.Context, to, subject, template string, data map[string]any) error
}

// MailRequestedEvent is the broker payload for a single mail request.
type MailRequestedEvent struct {
	To          string         `json:"to"`
	Subject     string         `json:"subject"`
	Template    string         `json:"template"`
	Data        map[string]any `json:"data"`
	RequestedAt string         `json:"requested_at"`
}
