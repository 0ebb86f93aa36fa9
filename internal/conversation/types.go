package conversation

import "github.com/consultorio-ai/citabot/internal/booking"

// Roles in a conversation transcript. They follow the wire roles of the
// language-model backend.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Entry is a single message in a per-user conversation history.
type Entry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Inbound is one message received from the messaging gateway.
type Inbound struct {
	From string
	To   string
	Body string
}

// OutcomeKind tags what the language model produced for a turn.
type OutcomeKind int

const (
	// OutcomeEmpty means the model returned no usable candidates; there is
	// nothing to send.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeReply is free conversational text to relay verbatim.
	OutcomeReply
	// OutcomeAppointment is a structured draft signalling a completed or
	// partially completed booking.
	OutcomeAppointment
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeAppointment:
		return "appointment"
	default:
		return "empty"
	}
}

// Outcome is the decoded result of one model turn. It is decoded exactly once
// at the gateway boundary; downstream code switches on Kind and never
// re-inspects raw text.
type Outcome struct {
	Kind  OutcomeKind
	Reply string
	Draft booking.Draft
}
