package notifications

import (
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/casaflow/booking-service/internal/utils"
)

// Notifier delivers best-effort operational notifications. Failures are
// logged, never returned: notifications must not affect business outcomes.
type Notifier interface {
	Notify(subject, body string)
}

type Config struct {
	SendGridAPIKey string
	FromEmail      string
	ToEmail        string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioToNumber   string
}

type notifier struct {
	cfg          Config
	twilioClient *twilio.RestClient
}

func NewNotifier(cfg Config) Notifier {
	n := &notifier{cfg: cfg}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		n.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return n
}

func (n *notifier) Notify(subject, body string) {
	go n.sendEmail(subject, body)
	go n.sendSMS(subject + ": " + body)
}

func (n *notifier) sendEmail(subject, body string) {
	if n.cfg.SendGridAPIKey == "" || n.cfg.ToEmail == "" {
		return
	}
	from := mail.NewEmail("Casaflow Bookings", n.cfg.FromEmail)
	to := mail.NewEmail("", n.cfg.ToEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)
	client := sendgrid.NewSendClient(n.cfg.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		utils.Logger.WithError(err).Error("notification email failed")
		return
	}
	if resp.StatusCode >= 400 {
		utils.Logger.WithField("status", resp.StatusCode).Error("notification email rejected")
	}
}

func (n *notifier) sendSMS(body string) {
	if n.twilioClient == nil || n.cfg.TwilioToNumber == "" {
		return
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(n.cfg.TwilioToNumber)
	params.SetFrom(n.cfg.TwilioFromNumber)
	params.SetBody(body)
	if _, err := n.twilioClient.Api.CreateMessage(params); err != nil {
		utils.Logger.WithError(err).Error("notification sms failed")
	}
}

// NopNotifier is used when no notification channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}
