package notification

import (
	"context"
	"encoding/json"
	"fmt"

	auditdomain "github.com/campusworks/acadia/internal/audit/domain"
	documentdomain "github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/eventbus"
)

// Consumer renders incoming events into notices. A malformed payload errors
// out and is dead-lettered by the consumer loop.
type Consumer struct {
	notifier Notifier
}

func NewConsumer(notifier Notifier) *Consumer {
	return &Consumer{notifier: notifier}
}

func (c *Consumer) onDocumentCreated(ctx context.Context, _ []byte, value []byte) error {
	var snap documentdomain.DocumentSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return fmt.Errorf("decode document snapshot: %w", err)
	}
	return c.notifier.Notify(ctx, Notice{
		Kind:    eventbus.TopicDocumentCreated,
		Subject: fmt.Sprintf("New document: %s", snap.Title),
		Body:    fmt.Sprintf("Version %s revision %d is now available.", snap.Version, snap.Revision),
	})
}

func (c *Consumer) onProgramEvent(kind, subject string) eventbus.Handler {
	return func(ctx context.Context, _ []byte, value []byte) error {
		var snap auditdomain.ProgramSnapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			return fmt.Errorf("decode program snapshot: %w", err)
		}
		body := fmt.Sprintf("Audit program %q is now %s.", snap.Title, snap.Status)
		if snap.RejectionReason != "" {
			body = fmt.Sprintf("%s Reason: %s", body, snap.RejectionReason)
		}
		return c.notifier.Notify(ctx, Notice{
			Kind:    kind,
			Subject: fmt.Sprintf("%s: %s", subject, snap.Title),
			Body:    body,
		})
	}
}

// Subscriptions lists every topic notifyd consumes.
func (c *Consumer) Subscriptions() []eventbus.Subscription {
	return []eventbus.Subscription{
		{Topic: eventbus.TopicDocumentCreated, Handler: c.onDocumentCreated},
		{Topic: eventbus.TopicAuditSubmitted, Handler: c.onProgramEvent(eventbus.TopicAuditSubmitted, "Audit program submitted")},
		{Topic: eventbus.TopicAuditProgramApproved, Handler: c.onProgramEvent(eventbus.TopicAuditProgramApproved, "Audit program approved")},
		{Topic: eventbus.TopicAuditProgramRejected, Handler: c.onProgramEvent(eventbus.TopicAuditProgramRejected, "Audit program rejected")},
	}
}
