package utils

import "time"

// NowISO renders the current UTC time the way every item in the tables
// stores timestamps.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
