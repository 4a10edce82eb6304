package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/accounts-service/internal/core/port"
	"github.com/arklim/accounts-service/internal/infra/logger"
)

// LogSender writes outbound mail to the log instead of delivering it. Used in
// local development when no Mailgun credentials are configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, mail port.Mail) error {
	recipients := make([]string, 0, len(mail.To))
	for _, to := range mail.To {
		recipients = append(recipients, logger.MaskEmail(to))
	}

	s.log.Info("mail delivery skipped, no mail transport configured",
		zap.Strings("to", recipients),
		zap.String("subject", mail.Subject),
	)
	return nil
}
