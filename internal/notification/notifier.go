// Package notification turns platform events into user-facing notices.
package notification

import (
	"context"

	"go.uber.org/zap"
)

// Notice is a rendered notification ready for a delivery channel.
type Notice struct {
	Kind    string // document.created, audit.submitted, ...
	Subject string
	Body    string
}

// Notifier delivers notices. The log notifier is the only channel today;
// email and push ride behind the same interface when they arrive.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notification")}
}

func (n *LogNotifier) Notify(_ context.Context, notice Notice) error {
	n.log.Info("notification dispatched",
		zap.String("kind", notice.Kind),
		zap.String("subject", notice.Subject),
		zap.String("body", notice.Body))
	return nil
}
