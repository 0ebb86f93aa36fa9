package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/consultorio-ai/citabot/internal/booking"
	"github.com/consultorio-ai/citabot/internal/retry"
)

// Pipeline tests wire the real gateway and reconciler together so a whole
// booking conversation runs end to end against in-memory backends.

type scriptedModel struct {
	replies []string
	calls   int
}

func (m *scriptedModel) Generate(context.Context, []Entry) (string, error) {
	reply := m.replies[m.calls]
	m.calls++
	return reply, nil
}

type memoryRecords struct {
	records map[string]*booking.Record
	nextID  int
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: map[string]*booking.Record{}}
}

func (s *memoryRecords) FindByPhone(_ context.Context, phone string) (*booking.Record, error) {
	for _, rec := range s.records {
		if rec.Phone == phone {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryRecords) FindByName(_ context.Context, name string) (*booking.Record, error) {
	for _, rec := range s.records {
		if rec.Name == name {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryRecords) Create(_ context.Context, fields booking.Fields) (*booking.Record, error) {
	s.nextID++
	rec := &booking.Record{ID: fmt.Sprintf("rec%d", s.nextID)}
	s.apply(rec, fields)
	s.records[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (s *memoryRecords) Update(_ context.Context, id string, fields booking.Fields) (*booking.Record, error) {
	rec := s.records[id]
	s.apply(rec, fields)
	cp := *rec
	return &cp, nil
}

func (s *memoryRecords) apply(rec *booking.Record, fields booking.Fields) {
	if fields.Name != nil {
		rec.Name = *fields.Name
	}
	if fields.Phone != nil {
		rec.Phone = *fields.Phone
	}
	if fields.Timestamp != nil {
		rec.Timestamp = *fields.Timestamp
	}
	if fields.PaymentReference != nil {
		rec.PaymentReference = *fields.PaymentReference
	}
}

func newPipeline(model ModelClient, records booking.RecordStore) (*Service, *fakeMessenger, *MemoryStore) {
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	gateway := NewGateway(model, false, policy, nil, nil)
	reconciler := booking.NewReconciler(records, nil, nil, nil)
	messenger := &fakeMessenger{}
	store := NewMemoryStore()
	svc := NewService(store, gateway, reconciler, messenger, nil, nil)
	return svc, messenger, store
}

func TestBookingConversationEndToEnd(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"¡Hola! ¿Me das tu nombre completo, teléfono, fecha y hora?",
		`{"nombre":"Ana Pérez","telefono":"+58111","fecha":"2026-09-01","hora":"09:00"}`,
	}}
	records := newMemoryRecords()
	svc, messenger, store := newPipeline(model, records)
	ctx := context.Background()

	if err := svc.HandleInbound(ctx, Inbound{From: "whatsapp:+58111", To: "whatsapp:+58999", Body: "quiero una cita"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if len(records.records) != 0 {
		t.Fatal("no record should exist after a conversational turn")
	}

	if err := svc.HandleInbound(ctx, Inbound{From: "whatsapp:+58111", To: "whatsapp:+58999", Body: "Ana Pérez, +58111, 2026-09-01 09:00"}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if len(records.records) != 1 {
		t.Fatalf("expected one record, got %d", len(records.records))
	}
	for _, rec := range records.records {
		if rec.Phone != "+58111" || rec.Timestamp != "2026-09-01T09:00:00Z" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	}
	if len(messenger.sent) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(messenger.sent))
	}
	if messenger.sent[1].Body != confirmationMessage {
		t.Fatalf("expected confirmation, got %q", messenger.sent[1].Body)
	}

	history, _ := store.History(ctx, "whatsapp:+58111")
	if len(history) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(history))
	}
}

func TestPaymentReferenceConversationEndToEnd(t *testing.T) {
	records := newMemoryRecords()
	name := "Ana Pérez"
	phone := "+58111"
	ts := "2026-09-01T09:00:00Z"
	if _, err := records.Create(context.Background(), booking.Fields{Name: &name, Phone: &phone, Timestamp: &ts}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	model := &scriptedModel{replies: []string{
		"Claro, ¿me confirmas tu nombre para buscar tu cita?",
		`{"nombre":"Ana Pérez","telefono":"","referenciaPago":"PM-777"}`,
	}}
	svc, messenger, _ := newPipeline(model, records)
	ctx := context.Background()

	if err := svc.HandleInbound(ctx, Inbound{From: "whatsapp:+58111", To: "whatsapp:+58999", Body: "ya pagué, referencia PM-777"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if err := svc.HandleInbound(ctx, Inbound{From: "whatsapp:+58111", To: "whatsapp:+58999", Body: "Ana Pérez, PM-777"}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if len(records.records) != 1 {
		t.Fatalf("payment update must not create records, got %d", len(records.records))
	}
	for _, rec := range records.records {
		if rec.PaymentReference != "PM-777" {
			t.Fatalf("expected reference recorded, got %q", rec.PaymentReference)
		}
		if rec.Timestamp != ts {
			t.Fatalf("payment update must leave the appointment untouched, got %q", rec.Timestamp)
		}
	}
	if messenger.sent[1].Body != confirmationMessage {
		t.Fatalf("expected confirmation after update, got %q", messenger.sent[1].Body)
	}
}
