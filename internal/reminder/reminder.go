// Package reminder sends day-before appointment reminders on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/consultorio-ai/citabot/internal/booking"
	"github.com/consultorio-ai/citabot/internal/conversation"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

// RecordLister returns the appointment records scheduled on a YYYY-MM-DD date.
type RecordLister interface {
	ListByDate(ctx context.Context, date string) ([]booking.Record, error)
}

// Service runs a daily sweep over tomorrow's appointments and messages each
// patient.
type Service struct {
	records   RecordLister
	messenger conversation.Messenger
	from      string
	cronSpec  string
	logger    *logging.Logger
	cron      *cron.Cron
	now       func() time.Time
}

func NewService(records RecordLister, messenger conversation.Messenger, from, cronSpec string, logger *logging.Logger) *Service {
	if records == nil {
		panic("reminder: record lister cannot be nil")
	}
	if messenger == nil {
		panic("reminder: messenger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cronSpec == "" {
		cronSpec = "0 9 * * *"
	}
	return &Service{
		records:   records,
		messenger: messenger,
		from:      from,
		cronSpec:  cronSpec,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the daily sweep. The returned error only covers a bad cron
// spec.
func (s *Service) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cronSpec, func() {
		if err := s.SendReminders(ctx); err != nil {
			s.logger.Error("reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("reminder: invalid cron spec %q: %w", s.cronSpec, err)
	}
	s.cron.Start()
	s.logger.Info("reminder scheduler started", "spec", s.cronSpec)
	return nil
}

// Stop halts the scheduler; already-running sweeps finish on their own.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// SendReminders messages every patient with an appointment tomorrow. A failed
// send is logged and the sweep moves on; one unreachable patient must not
// silence the rest.
func (s *Service) SendReminders(ctx context.Context) error {
	tomorrow := s.now().AddDate(0, 0, 1).Format("2006-01-02")
	s.logger.Info("checking appointments for reminders", "date", tomorrow)

	records, err := s.records.ListByDate(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("reminder: list appointments: %w", err)
	}

	for _, record := range records {
		if record.Phone == "" {
			s.logger.Warn("appointment without phone, skipping reminder", "record_id", record.ID)
			continue
		}
		msg := conversation.OutboundMessage{
			To:   record.Phone,
			From: s.from,
			Body: reminderBody(record),
		}
		if err := s.messenger.Send(ctx, msg); err != nil {
			s.logger.Error("failed to send reminder", "to", record.Phone, "error", err)
			continue
		}
		s.logger.Info("reminder sent", "to", record.Phone)
	}
	return nil
}

func reminderBody(record booking.Record) string {
	date, hour := formatAppointment(record.Timestamp)
	if hour == "" {
		return fmt.Sprintf("Recordatorio: Tienes una cita con el Doctor Lucas mañana (%s). ¡Te esperamos!", date)
	}
	return fmt.Sprintf("Recordatorio: Tienes una cita con el Doctor Lucas mañana, %s a las %s. ¡Te esperamos!", date, hour)
}

// formatAppointment splits a stored ISO timestamp into display date and time.
// An unparseable timestamp is shown as-is rather than dropping the reminder.
func formatAppointment(timestamp string) (string, string) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, timestamp); err == nil {
			return ts.Format("02/01/2006"), ts.Format("3:04 PM")
		}
	}
	return timestamp, ""
}
