package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"gymflow/internal/config"
	"gymflow/internal/settings"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML email over SMTP. With no SMTP host configured every send
// is SKIPPED.
type Mailer struct {
	cfg      config.EmailConfig
	settings settings.Provider
	loc      *time.Location
	logger   *zap.Logger
	sendMail SendMailFunc
}

// NewMailer creates a Mailer. A nil send uses smtp.SendMail.
func NewMailer(cfg config.EmailConfig, provider settings.Provider, loc *time.Location, logger *zap.Logger, send SendMailFunc) *Mailer {
	if send == nil {
		send = smtp.SendMail
	}
	if !configured(cfg) {
		logger.Warn("SMTP not configured, emails will be skipped")
	}
	return &Mailer{cfg: cfg, settings: provider, loc: loc, logger: logger, sendMail: send}
}

func configured(cfg config.EmailConfig) bool {
	return cfg.Host != "" && cfg.From != ""
}

func (m *Mailer) Channel() Channel { return ChannelEmail }

func (m *Mailer) SendPaymentDueReminder(ctx context.Context, msg PaymentDue) (Outcome, error) {
	return m.send(ctx, msg.Recipient, "Payment Reminder", "payment_due", map[string]any{
		"Name":    msg.Name,
		"Amount":  msg.Amount.StringFixed(2),
		"DueDate": msg.DueDate.In(m.loc).Format(DisplayDate),
	})
}

func (m *Mailer) SendBirthdayWish(ctx context.Context, to Recipient) (Outcome, error) {
	return m.send(ctx, to, "Happy Birthday", "birthday", map[string]any{
		"Name": to.Name,
	})
}

func (m *Mailer) SendPaymentReceipt(ctx context.Context, msg Receipt) (Outcome, error) {
	return m.send(ctx, msg.Recipient, "Payment Receipt "+msg.ReceiptNumber, "receipt", map[string]any{
		"Name":          msg.Name,
		"ReceiptNumber": msg.ReceiptNumber,
		"Period":        fmt.Sprintf("%s %d", time.Month(msg.Month), msg.Year),
		"Amount":        msg.Amount.StringFixed(2),
		"PaidAt":        msg.PaidAt.In(m.loc).Format(DisplayDate),
		"CollectedBy":   msg.CollectedBy,
		"DueDate":       msg.NextDueDate.In(m.loc).Format(DisplayDate),
	})
}

func (m *Mailer) SendWelcome(ctx context.Context, msg Welcome) (Outcome, error) {
	return m.send(ctx, msg.Recipient, "Membership Confirmed", "welcome", map[string]any{
		"Name":    msg.Name,
		"Phone":   msg.Phone,
		"DueDate": msg.DueDate.In(m.loc).Format(DisplayDate),
	})
}

func (m *Mailer) SendPlan(ctx context.Context, msg Plan) (Outcome, error) {
	subject := "Your " + msg.Kind
	if msg.Title != "" {
		subject += ": " + msg.Title
	}
	return m.send(ctx, msg.Recipient, subject, "plan", map[string]any{
		"Name":    msg.Name,
		"Kind":    msg.Kind,
		"Title":   msg.Title,
		"Content": msg.Content,
	})
}

func (m *Mailer) send(ctx context.Context, to Recipient, subject, tmpl string, data map[string]any) (Outcome, error) {
	if to.Email == "" || !configured(m.cfg) {
		return OutcomeSkipped, nil
	}

	gymName, err := settings.String(ctx, m.settings, settings.GymName)
	if err != nil {
		return "", err
	}
	data["GymName"] = gymName
	subject = fmt.Sprintf("%s | %s", subject, gymName)

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl, err)
	}

	msg := buildMessage(fmt.Sprintf("%s <%s>", gymName, m.cfg.From), to.Email, subject, body.String())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to.Email}, msg); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", to.Email, err)
	}

	m.logger.Info("Email sent", zap.String("to", to.Email), zap.String("template", tmpl))
	return OutcomeSent, nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
