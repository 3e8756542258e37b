// Package notify posts pipeline messages to a Slack incoming webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	resty "github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	RequestTimeout = 10 * time.Second
	Username       = "Healthcare Analytics Pipeline"
	Footer         = "Healthcare Analytics Platform"
)

// Statuses accepted by Send
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
	StatusInfo    = "info"
)

// ErrNoWebhook is returned when no webhook URL is configured
var ErrNoWebhook = errors.New("no Slack webhook URL provided, set SLACK_WEBHOOK_URL")

var emojiMap = map[string]string{
	StatusSuccess: ":white_check_mark:",
	StatusFailure: ":x:",
	StatusWarning: ":warning:",
	StatusInfo:    ":information_source:",
}

// Attachment is a Slack message attachment
type Attachment struct {
	Color  string `json:"color"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	Ts     int64  `json:"ts"`
}

// Payload is the JSON body posted to the webhook
type Payload struct {
	Text        string       `json:"text"`
	Username    string       `json:"username"`
	IconEmoji   string       `json:"icon_emoji"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Notifier sends messages to one webhook
type Notifier struct {
	WebhookURL string
	Logger     *logrus.Logger
	Now        func() time.Time
	http       *resty.Client
}

// NewNotifier creates a notifier for the given webhook URL
func NewNotifier(webhookURL string, logger *logrus.Logger) *Notifier {
	c := resty.New()
	c.SetTimeout(RequestTimeout)
	c.SetHeader("Content-Type", "application/json")
	return &Notifier{
		WebhookURL: webhookURL,
		Logger:     logger,
		Now:        time.Now,
		http:       c,
	}
}

// Client exposes the underlying HTTP client
func (n *Notifier) Client() *resty.Client {
	return n.http
}

// Emoji returns the Slack emoji for a status, defaulting to info
func Emoji(status string) string {
	if e, ok := emojiMap[status]; ok {
		return e
	}
	return emojiMap[StatusInfo]
}

// Color returns the attachment color for a status
func Color(status string) string {
	switch status {
	case StatusSuccess:
		return "good"
	case StatusFailure:
		return "danger"
	default:
		return "warning"
	}
}

// BuildPayload assembles the message sent by Send
func (n *Notifier) BuildPayload(message, status string) Payload {
	return Payload{
		Text:      fmt.Sprintf("%s %s", Emoji(status), message),
		Username:  Username,
		IconEmoji: ":hospital:",
		Attachments: []Attachment{{
			Color:  Color(status),
			Text:   message,
			Footer: Footer,
			Ts:     n.Now().Unix(),
		}},
	}
}

// Send posts a status message with an attachment
func (n *Notifier) Send(ctx context.Context, message, status string) error {
	return n.post(ctx, n.BuildPayload(message, status))
}

// SendPipelineStatus posts the final status of a pipeline run
func (n *Notifier) SendPipelineStatus(ctx context.Context, status, message string) error {
	icon := ":warning:"
	if status == "success" {
		icon = ":hospital:"
	}
	return n.post(ctx, Payload{
		Text:      fmt.Sprintf("🚀 Pipeline %s: %s", status, message),
		Username:  Username,
		IconEmoji: icon,
	})
}

func (n *Notifier) post(ctx context.Context, payload Payload) error {
	if n.WebhookURL == "" {
		return ErrNoWebhook
	}

	n.Logger.Debugf("Posting Slack message: %s", payload.Text)
	res, err := n.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.WebhookURL)
	if err != nil {
		return fmt.Errorf("send Slack notification: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("send Slack notification: webhook returned %s", res.Status())
	}
	return nil
}
