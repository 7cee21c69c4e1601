package cli

import (
	"fmt"
	"strings"
)

// DefaultBarWidth is the bar width used when ProgressBar receives zero.
const DefaultBarWidth = 40

// ProgressBar renders done out of total as a fixed-width bar followed by the
// percentage and counts. A zero total renders an empty bar at 0%.
//
//	[████████░░░░░░░░░░░░] 40.0% (2/5)
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	if done < 0 {
		done = 0
	}
	if total > 0 && done > total {
		done = total
	}

	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	filled := int(float64(width) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %.1f%% (%d/%d)", bar, percent, done, total)
}
