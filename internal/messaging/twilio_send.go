package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/consultorio-ai/citabot/internal/conversation"
	"github.com/consultorio-ai/citabot/internal/retry"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

var twilioSendTracer = otel.Tracer("citabot.internal.messaging.twilio_send")

const twilioAPIBase = "https://api.twilio.com"

// TwilioSender posts WhatsApp messages through Twilio's REST API. Rate limits
// are retried with backoff; once retries are exhausted the message is dropped
// rather than failing the turn that produced it.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	policy     retry.Policy
	httpClient *http.Client
	logger     *logging.Logger
}

// TwilioOption adjusts a TwilioSender.
type TwilioOption func(*TwilioSender)

// WithTwilioBaseURL points the sender at a different API host, for tests.
func WithTwilioBaseURL(baseURL string) TwilioOption {
	return func(s *TwilioSender) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func NewTwilioSender(accountSID, authToken, defaultFrom string, policy retry.Policy, logger *logging.Logger, opts ...TwilioOption) (*TwilioSender, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil, errors.New("messaging: twilio credentials missing")
	}
	if logger == nil {
		logger = logging.Default()
	}
	policy.OnExhausted = retry.Suppress
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		baseURL:    twilioAPIBase,
		policy:     policy,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ conversation.Messenger = (*TwilioSender)(nil)

// Send dispatches a single message.
func (s *TwilioSender) Send(ctx context.Context, msg conversation.OutboundMessage) error {
	if msg.To == "" {
		return errors.New("messaging: to required")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.From == "" {
		return errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("citabot.to", msg.To))

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("From", msg.From)
	payload.Set("Body", msg.Body)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	err := retry.Do(ctx, s.policy, s.logger, "twilio.send", func(ctx context.Context) error {
		return s.post(ctx, endpoint, payload, msg.To)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *TwilioSender) post(ctx context.Context, endpoint string, payload url.Values, to string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("messaging: build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: twilio request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Info("twilio message sent", "to", to)
		return nil
	}

	sendErr := fmt.Errorf("messaging: twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return retry.RateLimited(sendErr)
	}
	return sendErr
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
