package render

import "fmt"

// splitSeconds truncates a seconds value into whole clock components plus
// milliseconds. Truncation, not rounding, keeps timestamps stable against
// float representation of segment boundaries.
func splitSeconds(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	ms = int((seconds - float64(total)) * 1000)
	h = total / 3600
	m = (total % 3600) / 60
	s = total % 60
	return h, m, s, ms
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds float64) string {
	h, m, s, _ := splitSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// SRTTimestamp renders seconds as HH:MM:SS,mmm.
func SRTTimestamp(seconds float64) string {
	h, m, s, ms := splitSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// VTTTimestamp renders seconds as HH:MM:SS.mmm.
func VTTTimestamp(seconds float64) string {
	h, m, s, ms := splitSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
