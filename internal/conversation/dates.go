package conversation

import (
	"regexp"
	"strings"
	"time"
)

// Patients write "mañana" or "el viernes", not calendar dates. Rewriting those
// phrases to YYYY-MM-DD before the model sees them keeps the extracted drafts
// anchored to the real calendar.
var (
	dayAfterTomorrowRe = regexp.MustCompile(`(?i)pasado\s+ma[ñn]ana`)
	tomorrowRe         = regexp.MustCompile(`(?i)ma[ñn]ana`)
	weekdayRe          = regexp.MustCompile(`(?i)\b(lunes|martes|mi[ée]rcoles|jueves|viernes|s[áa]bado|domingo)\b`)
	nextWeekRe         = regexp.MustCompile(`(?i)(semana\s+que\s+viene|pr[óo]xima\s+semana)`)
)

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

// NormalizeRelativeDate replaces Spanish relative date phrases in message with
// concrete YYYY-MM-DD dates computed from now. Messages without such phrases
// pass through untouched.
func NormalizeRelativeDate(message string, now time.Time) string {
	if m := dayAfterTomorrowRe.FindString(message); m != "" {
		date := now.AddDate(0, 0, 2).Format("2006-01-02")
		return dayAfterTomorrowRe.ReplaceAllString(message, date)
	}
	if m := tomorrowRe.FindString(message); m != "" {
		date := now.AddDate(0, 0, 1).Format("2006-01-02")
		return tomorrowRe.ReplaceAllString(message, date)
	}

	match := weekdayRe.FindString(message)
	if match == "" {
		return message
	}
	target, ok := weekdays[stripAccents(strings.ToLower(match))]
	if !ok {
		return message
	}

	days := (int(target) - int(now.Weekday()) + 7) % 7
	// "el viernes" on a Friday means next Friday, as does an explicit
	// "semana que viene".
	if days == 0 || nextWeekRe.MatchString(message) {
		days += 7
	}
	date := now.AddDate(0, 0, days).Format("2006-01-02")
	out := weekdayRe.ReplaceAllString(message, date)
	return nextWeekRe.ReplaceAllString(out, "")
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

func stripAccents(s string) string {
	return accentReplacer.Replace(s)
}
