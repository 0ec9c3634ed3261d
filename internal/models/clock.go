package models

import "time"

// Now returns the current UTC time at second precision, the resolution records are persisted with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
