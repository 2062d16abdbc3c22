package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"makelaarsland-notifier/config"
	"makelaarsland-notifier/models"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/utils"
)

// messageCreator is the Twilio messages endpoint.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsApp sends announcements through the Twilio WhatsApp API.
type WhatsApp struct {
	api         messageCreator
	from        string
	recipients  []string
	siteBaseURL string
	logger      *utils.Logger
}

var _ services.Notifier = (*WhatsApp)(nil)

// NewWhatsApp creates a WhatsApp notifier from cfg.
func NewWhatsApp(cfg *config.Config, logger *utils.Logger) *WhatsApp {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &WhatsApp{
		api:         client.Api,
		from:        whatsAppSender(cfg.TwilioPhoneNumber),
		recipients:  cfg.WhatsAppRecipients,
		siteBaseURL: cfg.SiteBaseURL,
		logger:      logger,
	}
}

func whatsAppSender(number string) string {
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (w *WhatsApp) Name() string { return "whatsapp" }

// Notify sends one message per recipient. A failed recipient is logged and
// skipped; an error is returned only when nobody was reached.
func (w *WhatsApp) Notify(ctx context.Context, record *models.HouseRecord) error {
	if len(w.recipients) == 0 {
		w.logger.Debug("[whatsapp] No recipients configured")
		return nil
	}

	body := NewMessage(record, w.siteBaseURL).Text()
	w.logger.Info("[whatsapp] Message length: %d characters", len(body))

	sent := 0
	for _, to := range w.recipients {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetFrom(w.from)
		params.SetTo(to)
		params.SetBody(body)

		resp, err := w.api.CreateMessage(params)
		if err != nil {
			w.logger.Error("[whatsapp] Failed to send to %s: %v", to, err)
			continue
		}
		sent++
		if resp != nil && resp.Sid != nil {
			w.logger.Info("[whatsapp] Sent to %s (sid %s)", to, *resp.Sid)
		}
	}

	if sent == 0 {
		return errors.New("whatsapp: no recipient reached")
	}
	if sent < len(w.recipients) {
		w.logger.Warn("[whatsapp] Reached %d/%d recipients", sent, len(w.recipients))
	}
	return nil
}
