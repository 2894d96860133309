package notify

import (
	"context"

	"go.uber.org/zap"
)

// CompletedEmail describes the completion notification sent to document
// participants once a seal commits.
type CompletedEmail struct {
	DocumentID string
	// RequestMetadata carries caller context from the original seal request
	// (source IP, user agent) into the email audit footer.
	RequestMetadata map[string]string
}

// Mailer sends completion emails. Delivery is best-effort: a failure never
// rolls back a committed seal.
type Mailer interface {
	SendCompletedEmail(ctx context.Context, email CompletedEmail) error
}

// LogMailer records the send instead of delivering it. It stands in for a
// real mail transport in environments without SMTP access.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) SendCompletedEmail(_ context.Context, email CompletedEmail) error {
	m.log.Info("completion email",
		zap.String("document_id", email.DocumentID),
		zap.Any("request_metadata", email.RequestMetadata))
	return nil
}
