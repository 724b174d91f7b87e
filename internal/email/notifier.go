package email

import (
	"context"
	"log/slog"
)

// Template keys for the messages the registration flow sends.
const (
	TemplateConfirmation = "registration_confirmation"
	TemplateApproval     = "registration_approved"
	TemplateRejection    = "registration_rejected"
)

// Notifier delivers a templated message to one recipient. Implementations
// must not block the caller on delivery; the registration flow treats send
// failures as non-fatal.
type Notifier interface {
	Send(ctx context.Context, to, template string, vars map[string]string) error
}

// LogNotifier writes outbound messages to the log instead of delivering
// them. It stands in for a real mail gateway in development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the message instead of delivering it.
func (n *LogNotifier) Send(ctx context.Context, to, template string, vars map[string]string) error {
	attrs := []any{"to", to, "template", template}
	for k, v := range vars {
		attrs = append(attrs, "var_"+k, v)
	}
	n.logger.InfoContext(ctx, "email notification", attrs...)
	return nil
}
