package util

import (
	"strings"
	"time"
)

// YMD is the date layout the API uses for by-day queries.
const YMD = "2006-01-02"

// BuildISO joins a date (YYYY-MM-DD) and a time (HH:MM) into "YYYY-MM-DDTHH:MM:00".
// It returns "" if either part is missing.
func BuildISO(date, clock string) string {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return ""
	}
	return date + "T" + clock + ":00"
}

// SplitISO is the inverse of BuildISO. It accepts a space or a "T" between date and
// time and truncates the time to HH:MM.
func SplitISO(iso string) (date, clock string) {
	if iso == "" {
		return "", ""
	}
	norm := strings.Replace(iso, " ", "T", 1)
	date, rest, _ := strings.Cut(norm, "T")
	if len(rest) > 5 {
		rest = rest[:5]
	}
	return date, rest
}

// ValidWindow reports whether both ends are set and start is strictly before end.
// Plain string comparison is enough for same-layout ISO values.
func ValidWindow(startISO, endISO string) bool {
	return startISO != "" && endISO != "" && startISO < endISO
}

func ToYMD(t time.Time) string {
	return t.Format(YMD)
}

// ClockLabel turns "2025-12-28 17:00:00" (or the "T" form) into "17:00".
// Values without a time part are returned unchanged.
func ClockLabel(s string) string {
	_, clock := SplitISO(s)
	if clock == "" {
		return s
	}
	return clock
}
