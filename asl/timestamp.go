package asl

import "time"

// parseTimestamp parses s as RFC 3339, the wire format for Wait's Timestamp
// field and for IsTimestamp detection (§4.2, §4.6).
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
