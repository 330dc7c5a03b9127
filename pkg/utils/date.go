package utils

import (
	"time"
)

// TimeNowUTC returns the current time in UTC. All persisted timestamps use UTC.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfMonth returns midnight on the first day of t's calendar month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FormatISO renders t as UTC ISO-8601 with second precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// BackupTimestamp renders t for use in backup file names.
func BackupTimestamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}
