package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"makelaarsland-notifier/config"
	"makelaarsland-notifier/models"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/utils"
)

var emailTemplate = template.Must(template.New("email").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #2c3e50;">🏠 New House Alert!</h2>
<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin-bottom: 20px;">
<h3 style="color: #2c3e50; margin-top: 0;">{{ .Title }}</h3>
<p><strong>Address:</strong> {{ .Address }}</p>
<p><strong>Price:</strong> {{ .Price }}</p>
<p><strong>Details:</strong> {{ .Details }}</p>
<p><strong>Agent:</strong> {{ .Agent }}</p>
{{ if .HasStation }}<div style="background-color: #e8f4f8; padding: 15px; border-radius: 8px; margin-top: 15px;">
<h4 style="color: #2c3e50; margin-top: 0;">🚉 Nearest Station</h4>
<p><strong>Name:</strong> {{ .StationName }}</p>
<p><strong>Distance:</strong> {{ .WalkingDistance }}</p>
<p><strong>Walking Time:</strong> {{ .WalkingTime }}</p>
</div>{{ end }}
{{ with .Link }}<p style="margin-top: 20px;">
<a href="{{ . }}" style="background-color: #3498db; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View Details</a>
</p>{{ end }}
</div>
</body>
</html>
`))

// sender delivers prepared messages over one SMTP session.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email sends HTML announcements over SMTP.
type Email struct {
	client      sender
	from        string
	recipients  []string
	siteBaseURL string
	logger      *utils.Logger
}

var _ services.Notifier = (*Email)(nil)

// NewEmail creates an Email notifier from cfg. Port 465 uses implicit TLS,
// any other port STARTTLS.
func NewEmail(cfg *config.Config, logger *utils.Logger) (*Email, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Email),
		mail.WithPassword(cfg.EmailPassword),
	}
	if cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: new client: %w", err)
	}
	return &Email{
		client:      client,
		from:        cfg.Email,
		recipients:  cfg.EmailRecipients,
		siteBaseURL: cfg.SiteBaseURL,
		logger:      logger,
	}, nil
}

func (e *Email) Name() string { return "email" }

// RenderEmail returns the HTML body for msg.
func RenderEmail(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("email: render: %w", err)
	}
	return buf.String(), nil
}

// Notify sends one email per recipient so addresses are not disclosed to
// each other. An error is returned only when nobody was reached.
func (e *Email) Notify(ctx context.Context, record *models.HouseRecord) error {
	if len(e.recipients) == 0 {
		e.logger.Debug("[email] No recipients configured")
		return nil
	}

	msg := NewMessage(record, e.siteBaseURL)
	body, err := RenderEmail(msg)
	if err != nil {
		return err
	}

	sent := 0
	for _, to := range e.recipients {
		m := mail.NewMsg()
		if err := m.From(e.from); err != nil {
			return fmt.Errorf("email: sender %q: %w", e.from, err)
		}
		if err := m.To(to); err != nil {
			e.logger.Error("[email] Invalid recipient %q: %v", to, err)
			continue
		}
		m.Subject(msg.Subject())
		m.SetBodyString(mail.TypeTextHTML, body)
		m.AddAlternativeString(mail.TypeTextPlain, msg.Text())

		if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
			e.logger.Error("[email] Failed to send to %s: %v", to, err)
			continue
		}
		sent++
		e.logger.Info("[email] Sent to %s", to)
	}

	if sent == 0 {
		return errors.New("email: no recipient reached")
	}
	return nil
}
