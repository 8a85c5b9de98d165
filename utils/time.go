package utils

import "time"

// FormatDate renders a timestamp for listings, e.g. "2023-07-15 14:30".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// FormatDay drops the time of day.
func FormatDay(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02")
}

func FormatClock(t time.Time) string {
	return t.Local().Format("15:04")
}
