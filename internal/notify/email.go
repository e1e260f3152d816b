// Package notify provides an optional email subscriber for the
// detection engine. The engine's consumers are whatever the calling
// process wires via detection.Engine.RegisterCallback; this is one
// concrete option for that role alongside the plain log-package
// subscriber in cmd/engine/main.go.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"market-signal-engine/internal/signal"
)

// EmailConfig carries SMTP delivery settings for the email subscriber.
type EmailConfig struct {
	Enabled     bool
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FromName    string
	FromAddress string
	Recipients  []string
}

// EmailNotifier sends one email per delivered signal.
type EmailNotifier struct {
	cfg EmailConfig
}

// NewEmailNotifier constructs an EmailNotifier. Callers should check
// IsConfigured before registering Deliver as a subscriber.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// IsConfigured reports whether enough configuration is present to send
// mail.
func (n *EmailNotifier) IsConfigured() bool {
	return n.cfg.Enabled &&
		n.cfg.Username != "" &&
		n.cfg.Password != "" &&
		n.cfg.SMTPHost != "" &&
		n.cfg.SMTPPort > 0 &&
		len(n.cfg.Recipients) > 0
}

// Deliver sends one plaintext email per signal. It takes the same
// arguments as a detection.Subscriber but also returns an error, so it
// is registered through a wrapping closure. Send failures are returned,
// not logged here; the wrapper in cmd/engine/main.go logs them.
func (n *EmailNotifier) Deliver(s signal.Signal, message string) error {
	if !n.IsConfigured() {
		return fmt.Errorf("email notifier not configured")
	}

	subject := fmt.Sprintf("[%s] %s %s", s.Symbol, s.SignalType, s.Direction)
	body := fmt.Sprintf("%s\n\nStrength: %d\nTimeframe: %s\nPrice: %v\nTimestamp: %s",
		message, s.Strength, s.Timeframe, s.Price, s.Timestamp.Format("2006-01-02T15:04:05Z"))

	return n.send(subject, body)
}

func (n *EmailNotifier) send(subject, body string) error {
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	to := strings.Join(n.cfg.Recipients, ",")

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s <%s>\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n",
		to, n.cfg.FromName, n.cfg.FromAddress, subject, body))

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, n.cfg.FromAddress, n.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("failed to send signal email: %w", err)
	}
	return nil
}
