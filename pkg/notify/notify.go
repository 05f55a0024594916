//go:generate mockgen -source notify.go -destination ../../internal/mocks/mock_notify.go -package mocks Notifier

// Package notify reports batch level failures of a consent sync to operators.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/openfga/consentsync/pkg/logger"
)

// Notifier delivers a human readable message. Delivery is best-effort: callers log a
// returned error and carry on.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// LogNotifier writes every message to a logger at warn level.
type LogNotifier struct {
	logger logger.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, msg string) error {
	n.logger.WarnWithContext(ctx, "consent sync notification", zap.String("message", msg))
	return nil
}

// Send notifies n and logs, instead of returning, any delivery error.
func Send(ctx context.Context, n Notifier, l logger.Logger, msg string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		l.ErrorWithContext(ctx, "failed to send notification", zap.String("message", msg), zap.Error(err))
	}
}
