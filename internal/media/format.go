package media

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count with IEC units, e.g. "1.5 GiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.IBytes(uint64(bytes))
}

// FormatDuration renders MM:SS, or HH:MM:SS from one hour on.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours := total / 3600        //nolint:mnd
	minutes := total % 3600 / 60 //nolint:mnd
	seconds := total % 60        //nolint:mnd

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
