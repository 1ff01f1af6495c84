package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"leaseflow/internal/logger"
	"leaseflow/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Channel delivers a stored notification outside the application.
type Channel interface {
	Name() string
	// Applies reports whether the channel has anything to send for d.
	Applies(d Delivery) bool
	Send(ctx context.Context, d Delivery) error
}

// SESService and SNSService are the parts of the AWS clients the channels use.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Pusher sends a payload to every live connection of one user.
type Pusher interface {
	SendToUser(userID uuid.UUID, payload []byte) int
}

// PushEvent is the websocket frame for a new notification.
type PushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type pushChannel struct {
	hub Pusher
}

func NewPushChannel(hub Pusher) Channel {
	return &pushChannel{hub: hub}
}

func (c *pushChannel) Name() string { return "websocket" }

func (c *pushChannel) Applies(Delivery) bool { return true }

func (c *pushChannel) Send(_ context.Context, d Delivery) error {
	payload, err := json.Marshal(PushEvent{Type: "notification", Data: d.Notification})
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}
	c.hub.SendToUser(d.Recipient.ID, payload)
	return nil
}

type emailChannel struct {
	client  SESService
	from    string
	baseURL string
}

// NewEmailChannel mails every notification to the recipient's address.
func NewEmailChannel(client SESService, from, baseURL string) Channel {
	return &emailChannel{client: client, from: from, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *emailChannel) Name() string { return "email" }

func (c *emailChannel) Applies(d Delivery) bool { return d.Recipient.Email != "" }

func (c *emailChannel) Send(ctx context.Context, d Delivery) error {
	n := d.Notification
	text := n.Message
	if n.Link != "" {
		text += "\n\n" + c.baseURL + n.Link
	}
	body := "<p>" + html.EscapeString(n.Message) + "</p>"
	if n.Link != "" {
		body += fmt.Sprintf(`<p><a href="%s%s">Open in LeaseFlow</a></p>`, c.baseURL, html.EscapeString(n.Link))
	}

	_, err := c.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{d.Recipient.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.Title)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(c.from),
	})
	return err
}

type smsChannel struct {
	client SNSService
}

// NewSMSChannel texts urgent notifications to recipients with a phone number.
func NewSMSChannel(client SNSService) Channel {
	return &smsChannel{client: client}
}

func (c *smsChannel) Name() string { return "sms" }

func (c *smsChannel) Applies(d Delivery) bool {
	return d.Notification.Category.Urgent() && d.Recipient.Phone != ""
}

func (c *smsChannel) Send(ctx context.Context, d Delivery) error {
	_, err := c.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(d.Recipient.Phone),
		Message:     aws.String(d.Notification.Title + ": " + d.Notification.Message),
	})
	return err
}

// Deliverer fans stored notifications out to the channels after commit.
// Failures are logged and counted; they never reach the caller.
type Deliverer struct {
	channels []Channel
	counter  UnreadCounter
	log      logger.Logger
}

func NewDeliverer(counter UnreadCounter, log logger.Logger, channels ...Channel) *Deliverer {
	if counter == nil {
		counter = NopCounter{}
	}
	return &Deliverer{channels: channels, counter: counter, log: log.WithFields(map[string]interface{}{"component": "deliver"})}
}

func (d *Deliverer) Deliver(ctx context.Context, deliveries []Delivery) {
	seen := map[uuid.UUID]bool{}
	var recipients []uuid.UUID
	for _, del := range deliveries {
		if !seen[del.Recipient.ID] {
			seen[del.Recipient.ID] = true
			recipients = append(recipients, del.Recipient.ID)
		}
	}
	if len(recipients) > 0 {
		d.counter.Invalidate(ctx, recipients...)
	}

	for _, del := range deliveries {
		for _, ch := range d.channels {
			if !ch.Applies(del) {
				metrics.RecordDelivery(ch.Name(), metrics.DeliverySkipped)
				continue
			}
			if err := ch.Send(ctx, del); err != nil {
				metrics.RecordDelivery(ch.Name(), metrics.DeliveryFailed)
				d.log.WithError(err).Error("notification delivery failed", map[string]interface{}{
					"channel":         ch.Name(),
					"notification_id": del.Notification.ID.String(),
					"user_id":         del.Recipient.ID.String(),
				})
				continue
			}
			metrics.RecordDelivery(ch.Name(), metrics.DeliverySent)
		}
	}
}
