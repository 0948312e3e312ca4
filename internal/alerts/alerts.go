// Package alerts sends out-of-band email notifications for flagged
// activity via SMTP.
package alerts

import (
	"fmt"
	"net/smtp"
	"sort"
	"time"

	"github.com/finwell/finance-gateway/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending alert emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new alert sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// Enabled reports whether the sender has enough configuration to deliver
// mail. Callers skip alerting entirely when false.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != "" && s.cfg.AlertEmail != ""
}

// SendSuspiciousActivity notifies the operations mailbox that a write by
// userID matched a suspicious-activity pattern.
func (s *Sender) SendSuspiciousActivity(userID, pattern string, detail map[string]string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AlertEmail}
	e.Subject = fmt.Sprintf("Suspicious activity: %s", pattern)

	body := fmt.Sprintf(
		"Suspicious activity was flagged at %s.\n\nUser: %s\nPattern: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), userID, pattern,
	)
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		body += fmt.Sprintf("%s: %s\n", k, detail[k])
	}
	body += "\nThis write was flagged, not blocked. Review the security event log for context.\n"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send alert to %s: %v", s.cfg.AlertEmail, err)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	s.logger.Infof("Alert sent to %s: %s", s.cfg.AlertEmail, e.Subject)
	return nil
}
