package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const defaultMailerTimeout = 10 * time.Second

// RESTMailer delivers rendered emails through an HTTP email provider.
// 429 and 5xx responses surface as transient so the pipeline retries
// them; 4xx responses are terminal.
type RESTMailer struct {
	Adapter core.TransportAdapter
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

func NewRESTMailer(adapter core.TransportAdapter, baseURL string, apiKey string, from string) *RESTMailer {
	return &RESTMailer{
		Adapter: adapter,
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		From:    strings.TrimSpace(from),
		Timeout: defaultMailerTimeout,
	}
}

type mailerRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type mailerResponse struct {
	ID string `json:"id"`
}

func (m *RESTMailer) Send(ctx context.Context, email core.Email, html string) (core.MailerReceipt, error) {
	if m == nil || m.Adapter == nil {
		return core.MailerReceipt{}, fmt.Errorf("notify: mailer requires a transport adapter")
	}
	if strings.TrimSpace(m.BaseURL) == "" {
		return core.MailerReceipt{}, fmt.Errorf("notify: mailer base url is required")
	}

	body, err := json.Marshal(mailerRequest{
		From:    m.From,
		To:      email.To,
		Subject: email.Subject,
		HTML:    html,
	})
	if err != nil {
		return core.MailerReceipt{}, fmt.Errorf("notify: encode mail request: %w", err)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultMailerTimeout
	}
	res, err := m.Adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    m.BaseURL + "/emails",
		Headers: map[string]string{
			"Authorization": "Bearer " + m.APIKey,
			"Content-Type":  "application/json",
		},
		Body:    body,
		Timeout: timeout,
	})
	if err != nil {
		return core.MailerReceipt{}, &TransientSendError{Err: err}
	}

	switch {
	case res.StatusCode >= http.StatusInternalServerError,
		res.StatusCode == http.StatusTooManyRequests:
		return core.MailerReceipt{}, &TransientSendError{
			Err: fmt.Errorf("provider returned status %d", res.StatusCode),
		}
	case res.StatusCode >= http.StatusBadRequest:
		return core.MailerReceipt{}, fmt.Errorf("notify: provider rejected send with status %d", res.StatusCode)
	}

	var decoded mailerResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return core.MailerReceipt{}, fmt.Errorf("notify: decode provider response: %w", err)
	}
	return core.MailerReceipt{ProviderMessageID: strings.TrimSpace(decoded.ID)}, nil
}

var _ core.Mailer = (*RESTMailer)(nil)

// PaymentFailedNotifier adapts the notification service to the payment
// follow-up contract used by the billing handlers.
type PaymentFailedNotifier struct {
	Service *Service
	Clients core.ClientStore
}

func (n *PaymentFailedNotifier) NotifyPaymentFailed(ctx context.Context, clientID string, reason string) error {
	if n == nil || n.Service == nil {
		return fmt.Errorf("notify: payment notifier is not configured")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return fmt.Errorf("notify: client id is required")
	}
	recipient := clientID
	if n.Clients != nil {
		client, err := n.Clients.Get(ctx, clientID)
		if err != nil {
			return err
		}
		recipient = client.ContactEmail
	}
	_, err := n.Service.Send(ctx, core.Email{
		To:           recipient,
		Subject:      "Payment failed",
		TemplateName: TemplatePaymentFailed,
		Category:     "billing",
		Data:         map[string]any{"Reason": strings.TrimSpace(reason)},
	})
	return err
}
