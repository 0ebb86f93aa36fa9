package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/consultorio-ai/citabot/pkg/logging"
)

const defaultCalendlyBaseURL = "https://api.calendly.com"

// CalendlyClient implements EventScheduler against the Calendly API.
type CalendlyClient struct {
	accessToken  string
	eventTypeURI string
	userURI      string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
}

var _ EventScheduler = (*CalendlyClient)(nil)

// NewCalendlyClient builds a scheduling client for one event type.
func NewCalendlyClient(accessToken, eventTypeURI, userURI string, logger *logging.Logger) (*CalendlyClient, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("booking: calendly access token is required")
	}
	if strings.TrimSpace(eventTypeURI) == "" {
		return nil, errors.New("booking: calendly event type uri is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendlyClient{
		accessToken:  accessToken,
		eventTypeURI: eventTypeURI,
		userURI:      userURI,
		baseURL:      defaultCalendlyBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *CalendlyClient) WithBaseURL(base string) *CalendlyClient {
	if strings.TrimSpace(base) != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c
}

type calendlyInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone_number,omitempty"`
}

type calendlyEventPayload struct {
	EventType    string          `json:"event_type"`
	Owner        string          `json:"owner,omitempty"`
	InviteeEmail string          `json:"invitee_email"`
	Invitee      calendlyInvitee `json:"invitee"`
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time,omitempty"`
}

// CreateEvent schedules a calendar event for a confirmed booking. The invitee
// email is a placeholder: WhatsApp contacts carry no address and Calendly
// requires one.
func (c *CalendlyClient) CreateEvent(ctx context.Context, ev Event) error {
	payload := calendlyEventPayload{
		EventType:    c.eventTypeURI,
		Owner:        c.userURI,
		InviteeEmail: placeholderInviteeEmail,
		Invitee: calendlyInvitee{
			Name:  ev.InviteeName,
			Email: placeholderInviteeEmail,
			Phone: ev.InviteePhone,
		},
		StartTime: ev.StartTime,
		EndTime:   ev.EndTime,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("booking: encode calendly payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scheduled_events", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("booking: build calendly request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("booking: calendly request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("booking: calendly returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Info("calendar event created", "invitee", ev.InviteeName, "start_time", ev.StartTime)
	return nil
}

const placeholderInviteeEmail = "citas@consultorio.example"
