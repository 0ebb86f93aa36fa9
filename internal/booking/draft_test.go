package booking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftState(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		want  State
	}{
		{"empty", Draft{}, StateIncomplete},
		{"name only", Draft{Name: "Juan Pérez"}, StateIncomplete},
		{"missing time", Draft{Name: "Juan Pérez", Phone: "+1555", Date: "2024-06-20"}, StateIncomplete},
		{"reference without name", Draft{PaymentReference: "PM-123"}, StateIncomplete},
		{"full booking", Draft{Name: "Juan Pérez", Phone: "+1555", Date: "2024-06-20", Time: "10:00"}, StateFullBooking},
		{"payment update", Draft{Name: "Juan Pérez", PaymentReference: "PM-123"}, StatePaymentUpdate},
		{"payment update wins over full booking", Draft{Name: "Juan Pérez", Phone: "+1555", Date: "2024-06-20", Time: "10:00", PaymentReference: "PM-123"}, StatePaymentUpdate},
		{"whitespace only fields normalize to incomplete", Draft{Name: "  ", Phone: " ", Date: " ", Time: " "}.normalized(), StateIncomplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.draft.State())
		})
	}
}

func TestDraftTimestamp(t *testing.T) {
	d := Draft{Date: "2024-06-20", Time: "10:00"}
	assert.Equal(t, "2024-06-20T10:00:00Z", d.Timestamp())
}

func TestDraftJSONKeys(t *testing.T) {
	raw := `{"nombre":"Juan Pérez","telefono":"+1555","fecha":"2024-06-20","hora":"10:00","referenciaPago":"PM-123","tipoCita":"consultorio"}`

	var d Draft
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, "Juan Pérez", d.Name)
	assert.Equal(t, "+1555", d.Phone)
	assert.Equal(t, "2024-06-20", d.Date)
	assert.Equal(t, "10:00", d.Time)
	assert.Equal(t, "PM-123", d.PaymentReference)
	assert.Equal(t, "consultorio", d.AppointmentType)
}
