package ytgrab

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Unknown is the display placeholder for values that cannot be determined.
const Unknown = "--"

// FormatBytes renders a byte count for display, or Unknown for n <= 0.
func FormatBytes(n int64) string {
	if n <= 0 {
		return Unknown
	}
	return humanize.IBytes(uint64(n))
}

// FormatSpeed renders a bytes-per-second rate for display.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return Unknown
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatDuration renders a duration as MM:SS, or HH:MM:SS above an hour.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatETA renders a remaining-time estimate, e.g. "1h 4m", "2m 30s", "45s".
func FormatETA(seconds int) string {
	if seconds <= 0 {
		return Unknown
	}
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	case seconds >= 60:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
