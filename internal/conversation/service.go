package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/consultorio-ai/citabot/internal/booking"
	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

const (
	confirmationMessage = "¡Excelente! Tu cita ha sido agendada con éxito. Te esperamos."
	apologyMessage      = "Lo siento, hubo un problema procesando tu solicitud."
)

// OutboundMessage is one message handed to the messaging backend.
type OutboundMessage struct {
	To   string
	From string
	Body string
}

// Messenger delivers messages to the user. Implementations own their delivery
// retry policy.
type Messenger interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// Reconciler applies an actionable draft against the record backend.
type Reconciler interface {
	Reconcile(ctx context.Context, draft booking.Draft) error
}

// outcomeGenerator is what the Service needs from the Gateway.
type outcomeGenerator interface {
	Generate(ctx context.Context, history []Entry) (Outcome, error)
}

// Service runs the whole pipeline for one inbound message: record it, ask the
// model, reconcile any structured result, and reply.
type Service struct {
	store      Store
	gateway    outcomeGenerator
	reconciler Reconciler
	messenger  Messenger
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(store Store, gateway outcomeGenerator, reconciler Reconciler, messenger Messenger, logger *logging.Logger, m *metrics.Metrics) *Service {
	if store == nil {
		panic("conversation: service requires a store")
	}
	if gateway == nil {
		panic("conversation: service requires a gateway")
	}
	if reconciler == nil {
		panic("conversation: service requires a reconciler")
	}
	if messenger == nil {
		panic("conversation: service requires a messenger")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		gateway:    gateway,
		reconciler: reconciler,
		messenger:  messenger,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// HandleInbound processes one user message end to end. Any processing failure
// is answered with a fixed apology so the user is never left hanging; the
// underlying error is still returned for supervision.
func (s *Service) HandleInbound(ctx context.Context, msg Inbound) error {
	if strings.TrimSpace(msg.Body) == "" {
		s.logger.Info("empty message received, ignoring", "from", msg.From)
		return nil
	}

	if err := s.process(ctx, msg); err != nil {
		s.logger.Error("failed to process message", "from", msg.From, "error", err)
		s.send(ctx, msg, apologyMessage)
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, msg Inbound) error {
	body := NormalizeRelativeDate(msg.Body, s.now())

	if err := s.store.Append(ctx, msg.From, Entry{Role: RoleUser, Text: body}); err != nil {
		return err
	}
	history, err := s.store.History(ctx, msg.From)
	if err != nil {
		return err
	}

	outcome, err := s.gateway.Generate(ctx, history)
	if err != nil {
		return err
	}

	var reply string
	switch outcome.Kind {
	case OutcomeEmpty:
		s.logger.Info("model produced no outcome, nothing to send", "from", msg.From)
		return nil
	case OutcomeReply:
		reply = outcome.Reply
	case OutcomeAppointment:
		if err := s.reconciler.Reconcile(ctx, outcome.Draft); err != nil {
			return err
		}
		reply = confirmationMessage
	}

	if err := s.store.Append(ctx, msg.From, Entry{Role: RoleModel, Text: reply}); err != nil {
		s.logger.Warn("failed to record model reply", "from", msg.From, "error", err)
	}
	s.send(ctx, msg, reply)
	return nil
}

// send delivers a reply back over the channel the message arrived on.
// Delivery failures are logged, never propagated; the record-side work is
// already committed.
func (s *Service) send(ctx context.Context, msg Inbound, body string) {
	err := s.messenger.Send(ctx, OutboundMessage{To: msg.From, From: msg.To, Body: body})
	if err != nil {
		s.metrics.ObserveOutbound("error")
		s.logger.Error("failed to send reply", "to", msg.From, "error", err)
		return
	}
	s.metrics.ObserveOutbound("ok")
}
