package messaging

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/consultorio-ai/citabot/internal/conversation"
	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

var webhookTracer = otel.Tracer("citabot.internal.messaging.webhook")

// Dispatcher hands an inbound message off for asynchronous processing.
type Dispatcher interface {
	Dispatch(msg conversation.Inbound) error
}

// Handler terminates the Twilio WhatsApp webhook. It acknowledges Twilio
// immediately and queues the message; all real work happens after the
// response is written.
type Handler struct {
	dispatcher Dispatcher
	authToken  string
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewHandler creates the webhook handler. An empty authToken disables
// signature validation, for local development.
func NewHandler(dispatcher Dispatcher, authToken string, logger *logging.Logger, m *metrics.Metrics) *Handler {
	if dispatcher == nil {
		panic("messaging: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		authToken:  authToken,
		logger:     logger,
		metrics:    m,
	}
}

// WhatsAppWebhook handles POST /whatsapp-webhook requests.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	_, span := webhookTracer.Start(r.Context(), "messaging.webhook")
	defer span.End()

	if h.authToken != "" {
		if !ValidateSignature(r, h.authToken, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			h.metrics.ObserveInbound("rejected")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	webhook, err := ParseWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse webhook", "error", err)
		h.metrics.ObserveInbound("bad_request")
		span.RecordError(err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("citabot.message_sid", webhook.MessageSid),
		attribute.String("citabot.from", webhook.From),
	)

	// Twilio retries webhooks it considers failed, so acknowledge before
	// doing anything that can go wrong.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))

	if strings.TrimSpace(webhook.Body) == "" {
		h.logger.Info("empty message received, ignoring", "from", webhook.From)
		h.metrics.ObserveInbound("empty")
		return
	}

	err = h.dispatcher.Dispatch(conversation.Inbound{
		From: webhook.From,
		To:   webhook.To,
		Body: webhook.Body,
	})
	if err != nil {
		h.logger.Error("failed to dispatch message", "from", webhook.From, "error", err)
		h.metrics.ObserveInbound("dropped")
		return
	}
	h.metrics.ObserveInbound("ok")
}

// buildAbsoluteURL reconstructs the public URL Twilio signed, honoring proxy
// headers.
func buildAbsoluteURL(r *http.Request) string {
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
