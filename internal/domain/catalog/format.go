package catalog

import (
	"fmt"
	"math"
	"strconv"
)

// FormatTime renders a position in seconds as m:ss, or h:mm:ss for tracks an
// hour or longer. Invalid input renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanFileSize renders a byte count for display. Negative input means the
// size is unknown and renders as the empty string.
func HumanFileSize(bytes int64) string {
	if bytes < 0 {
		return ""
	}
	if bytes == 0 {
		return "0 B"
	}

	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	digits := 0
	if size < 10 && unit > 0 && size != math.Trunc(size) {
		digits = 1
	}
	return strconv.FormatFloat(size, 'f', digits, 64) + " " + sizeUnits[unit]
}
