package services

import (
	"context"
	"fmt"
	"html"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers one notification over its channel.
type Sender interface {
	Channel() models.NotificationChannel
	Send(ctx context.Context, n *models.Notification) error
}

/* ---------- Twilio SMS ---------- */

type TwilioSender struct {
	client   *twilio.RestClient
	from     string
	senderID string
}

func NewTwilioSender(accountSID, authToken, fromPhone, senderID string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:     fromPhone,
		senderID: senderID,
	}
}

func (s *TwilioSender) Channel() models.NotificationChannel { return models.NotificationChannelSMS }

func (s *TwilioSender) Send(_ context.Context, n *models.Notification) error {
	from := s.from
	if s.senderID != "" {
		from = s.senderID
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.To)
	params.SetFrom(from)
	params.SetBody(n.Message)
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("%w: twilio: %v", utils.ErrDeliveryFailed, err)
	}
	return nil
}

/* ---------- SendGrid email ---------- */

type SendGridSender struct {
	client      *sendgrid.Client
	orgName     string
	fromEmail   string
	sandbox     bool
	templateIDs map[string]string
}

func NewSendGridSender(apiKey, orgName, fromEmail string, sandbox bool, templateIDs map[string]string) *SendGridSender {
	return &SendGridSender{
		client:      sendgrid.NewSendClient(apiKey),
		orgName:     orgName,
		fromEmail:   fromEmail,
		sandbox:     sandbox,
		templateIDs: templateIDs,
	}
}

func (s *SendGridSender) Channel() models.NotificationChannel { return models.NotificationChannelEmail }

func (s *SendGridSender) Send(ctx context.Context, n *models.Notification) error {
	msg := s.buildMessage(n)
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{
			Enable: utils.Ptr(false),
		},
	}
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", utils.ErrDeliveryFailed, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", utils.ErrDeliveryFailed, resp.StatusCode, resp.Body)
	}
	return nil
}

// buildMessage uses the SendGrid dynamic template registered for the
// notification's template when there is one, plain text otherwise.
func (s *SendGridSender) buildMessage(n *models.Notification) *mail.SGMailV3 {
	from := mail.NewEmail(s.orgName, s.fromEmail)
	to := mail.NewEmail(n.Data["name"], n.To)

	if id, ok := s.templateIDs[n.Template]; ok && id != "" {
		msg := mail.NewV3Mail()
		msg.SetFrom(from)
		msg.SetTemplateID(id)
		p := mail.NewPersonalization()
		p.AddTos(to)
		p.Subject = n.Subject
		for k, v := range n.Data {
			p.SetDynamicTemplateData(k, v)
		}
		msg.AddPersonalizations(p)
		return msg
	}

	htmlBody := "<p>" + html.EscapeString(n.Message) + "</p>"
	return mail.NewSingleEmail(from, n.Subject, to, n.Message, htmlBody)
}
