package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats d as MM:SS, or HH:MM:SS from one hour up
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// HumanDuration spells d out, e.g. "1 hour, 3 minutes, 20 seconds"
func HumanDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total <= 0 {
		return "0 seconds"
	}

	units := []struct {
		name    string
		seconds int
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	var parts []string
	for _, unit := range units {
		n := total / unit.seconds
		total %= unit.seconds
		if n == 0 {
			continue
		}
		if n == 1 {
			parts = append(parts, "1 "+unit.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, unit.name))
		}
	}
	return strings.Join(parts, ", ")
}
