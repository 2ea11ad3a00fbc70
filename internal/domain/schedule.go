package domain

import "time"

// DefaultDigestHour is the UTC hour at which the daily digest falls due.
const DefaultDigestHour = 8

// NextDigestDue returns tomorrow's date (UTC) at the given hour. It always
// advances exactly one day boundary from now, so a late run never shifts the
// schedule to now+24h.
func NextDigestDue(now time.Time, hour int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, time.UTC)
}

// DigestDue reports whether the digest should be (re)generated at now.
func DigestDue(now, dueAt time.Time) bool {
	return !now.Before(dueAt)
}
