package booking

import "strings"

// Draft is the in-flight appointment data extracted from a conversation. The
// JSON keys match what the model is instructed to emit.
type Draft struct {
	Name             string `json:"nombre,omitempty"`
	Phone            string `json:"telefono,omitempty"`
	Date             string `json:"fecha,omitempty"` // YYYY-MM-DD
	Time             string `json:"hora,omitempty"`  // HH:MM
	PaymentReference string `json:"referenciaPago,omitempty"`
	AppointmentType  string `json:"tipoCita,omitempty"`
}

// State classifies how complete a draft is.
type State int

const (
	// StateIncomplete means the model is still gathering information; the
	// reconciler performs no backend calls.
	StateIncomplete State = iota
	// StatePaymentUpdate means the draft carries a payment reference for an
	// appointment that was booked earlier.
	StatePaymentUpdate
	// StateFullBooking means all booking fields are present.
	StateFullBooking
)

func (s State) String() string {
	switch s {
	case StatePaymentUpdate:
		return "payment_update"
	case StateFullBooking:
		return "full_booking"
	default:
		return "incomplete"
	}
}

// State returns the reconciliation state for the draft. A payment reference
// takes precedence over a full booking, matching the conversation flow where
// the reference arrives after the appointment already exists.
func (d Draft) State() State {
	if d.PaymentReference != "" && d.Name != "" {
		return StatePaymentUpdate
	}
	if d.Name != "" && d.Phone != "" && d.Date != "" && d.Time != "" {
		return StateFullBooking
	}
	return StateIncomplete
}

// Timestamp combines date and time into the ISO-8601 UTC form stored in the
// record backend and sent to the scheduling backend.
func (d Draft) Timestamp() string {
	return d.Date + "T" + d.Time + ":00Z"
}

func (d Draft) normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	d.PaymentReference = strings.TrimSpace(d.PaymentReference)
	d.AppointmentType = strings.TrimSpace(d.AppointmentType)
	return d
}
