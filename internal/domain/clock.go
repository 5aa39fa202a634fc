package domain

import "time"

// JakartaOffset is the fixed UTC+7 offset used for every displayed time.
const JakartaOffset = 7 * time.Hour

// ClockAt returns the HH:MM:SS wall clock of t shifted by offset from UTC.
func ClockAt(t time.Time, offset time.Duration) string {
	return t.UTC().Add(offset).Format("15:04:05")
}
