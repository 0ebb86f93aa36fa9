package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

// appointmentDuration is the slot length used for calendar events.
const appointmentDuration = 30 * time.Minute

// Record is an appointment row in the record backend. Phone number is the
// natural key; name is only used as a fallback for payment-reference updates.
type Record struct {
	ID               string
	Name             string
	Phone            string
	Timestamp        string // ISO datetime, e.g. 2024-06-20T10:00:00Z
	PaymentReference string
}

// Fields carries the writable record fields. Nil pointers are left untouched
// on update.
type Fields struct {
	Name             *string
	Phone            *string
	Timestamp        *string
	PaymentReference *string
}

// RecordStore is the record backend (Airtable in production).
type RecordStore interface {
	FindByPhone(ctx context.Context, phone string) (*Record, error)
	FindByName(ctx context.Context, name string) (*Record, error)
	Create(ctx context.Context, fields Fields) (*Record, error)
	Update(ctx context.Context, id string, fields Fields) (*Record, error)
}

// EventScheduler is the calendar backend (Calendly in production).
type EventScheduler interface {
	CreateEvent(ctx context.Context, ev Event) error
}

// Event is a scheduled-calendar event derived from a confirmed draft.
type Event struct {
	InviteeName  string
	InviteePhone string
	StartTime    string // ISO 8601 UTC
	EndTime      string
}

// Reconciler decides create vs update vs no-op against the record backend.
type Reconciler struct {
	records  RecordStore
	calendar EventScheduler
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewReconciler builds a reconciler. The calendar may be nil when no
// scheduling backend is configured.
func NewReconciler(records RecordStore, calendar EventScheduler, m *metrics.Metrics, logger *logging.Logger) *Reconciler {
	if records == nil {
		panic("booking: record store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		records:  records,
		calendar: calendar,
		metrics:  m,
		logger:   logger,
	}
}

// Reconcile applies a draft against the backends. Incomplete drafts are
// discarded without any backend call; the conversation keeps gathering data
// on the next turn.
func (r *Reconciler) Reconcile(ctx context.Context, draft Draft) error {
	draft = draft.normalized()
	state := draft.State()

	var err error
	switch state {
	case StatePaymentUpdate:
		err = r.applyPaymentUpdate(ctx, draft)
	case StateFullBooking:
		err = r.applyFullBooking(ctx, draft)
	default:
		r.logger.Debug("draft incomplete, nothing to reconcile")
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.ObserveReconcile(state.String(), status)
	return err
}

// applyPaymentUpdate merges the payment reference into an existing record.
// Lookup is by exact name; when both the stored record and the draft carry a
// phone number they must match, so two patients sharing a name cannot clobber
// each other's reference.
func (r *Reconciler) applyPaymentUpdate(ctx context.Context, draft Draft) error {
	record, err := r.records.FindByName(ctx, draft.Name)
	if err != nil {
		return fmt.Errorf("booking: payment update lookup: %w", err)
	}
	if record == nil {
		r.logger.Warn("no record found for payment update", "name", draft.Name)
		return nil
	}
	if record.Phone != "" && draft.Phone != "" && record.Phone != draft.Phone {
		r.logger.Warn("payment update skipped: phone mismatch",
			"name", draft.Name,
			"record_phone", record.Phone,
			"draft_phone", draft.Phone,
		)
		return nil
	}

	if _, err := r.records.Update(ctx, record.ID, Fields{PaymentReference: &draft.PaymentReference}); err != nil {
		return fmt.Errorf("booking: payment update: %w", err)
	}
	r.logger.Info("payment reference recorded", "record_id", record.ID)
	return nil
}

func (r *Reconciler) applyFullBooking(ctx context.Context, draft Draft) error {
	existing, err := r.records.FindByPhone(ctx, draft.Phone)
	if err != nil {
		return fmt.Errorf("booking: phone lookup: %w", err)
	}

	ts := draft.Timestamp()
	fields := Fields{
		Name:      &draft.Name,
		Phone:     &draft.Phone,
		Timestamp: &ts,
	}
	if draft.PaymentReference != "" {
		fields.PaymentReference = &draft.PaymentReference
	}

	if existing != nil {
		if _, err := r.records.Update(ctx, existing.ID, fields); err != nil {
			return fmt.Errorf("booking: update record: %w", err)
		}
		r.logger.Info("appointment record updated", "record_id", existing.ID, "phone", draft.Phone)
	} else {
		created, err := r.records.Create(ctx, fields)
		if err != nil {
			return fmt.Errorf("booking: create record: %w", err)
		}
		r.logger.Info("appointment record created", "record_id", created.ID, "phone", draft.Phone)
	}

	// The calendar write is best effort: there is no transaction spanning the
	// two backends, and a lost event must not lose the record.
	r.scheduleEvent(ctx, draft)
	return nil
}

func (r *Reconciler) scheduleEvent(ctx context.Context, draft Draft) {
	if r.calendar == nil {
		return
	}
	start := draft.Timestamp()
	end := start
	if ts, err := time.Parse(time.RFC3339, start); err == nil {
		end = ts.Add(appointmentDuration).Format(time.RFC3339)
	}
	err := r.calendar.CreateEvent(ctx, Event{
		InviteeName:  draft.Name,
		InviteePhone: draft.Phone,
		StartTime:    start,
		EndTime:      end,
	})
	if err != nil {
		r.logger.Error("calendar event creation failed", "error", err, "phone", draft.Phone)
	}
}
