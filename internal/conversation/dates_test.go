package conversation

import (
	"testing"
	"time"
)

func TestNormalizeRelativeDate(t *testing.T) {
	// A Wednesday.
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tomorrow",
			in:   "quiero una cita mañana a las 9",
			want: "quiero una cita 2026-08-27 a las 9",
		},
		{
			name: "tomorrow without accent",
			in:   "cita manana por favor",
			want: "cita 2026-08-27 por favor",
		},
		{
			name: "day after tomorrow",
			in:   "puede ser pasado mañana",
			want: "puede ser 2026-08-28",
		},
		{
			name: "weekday later this week",
			in:   "el viernes a las 10",
			want: "el 2026-08-28 a las 10",
		},
		{
			name: "weekday already past rolls to next week",
			in:   "el lunes a las 8",
			want: "el 2026-08-31 a las 8",
		},
		{
			name: "same weekday means next week",
			in:   "el miércoles que puedas",
			want: "el 2026-09-02 que puedas",
		},
		{
			name: "explicit next week",
			in:   "el viernes de la semana que viene",
			want: "el 2026-09-04 de la ",
		},
		{
			name: "no relative date",
			in:   "quiero una cita el 2026-09-15 a las 9",
			want: "quiero una cita el 2026-09-15 a las 9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeRelativeDate(tc.in, now)
			if got != tc.want {
				t.Fatalf("NormalizeRelativeDate(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
