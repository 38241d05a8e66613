package domain

import "fmt"

// FormatClock renders whole seconds as mm:ss. Minutes are not capped at 59.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatOptional renders a nil or zero value as a placeholder.
func FormatOptional(seconds *int) string {
	if seconds == nil || *seconds == 0 {
		return "--:--"
	}
	return FormatClock(float64(*seconds))
}
