package geometry

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders how long ago an ISO-8601 timestamp was, relative
// to now: "42s ago", "5m ago", "3h ago", "2d ago". Timestamps in the future
// count as zero seconds; unparsable input yields "recently".
func FormatRelativeTime(iso string, now time.Time) string {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return "recently"
	}
	sec := int64(now.Sub(t) / time.Second)
	if sec < 0 {
		sec = 0
	}
	if sec < 60 {
		return fmt.Sprintf("%ds ago", sec)
	}
	mins := sec / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hr := mins / 60
	if hr < 24 {
		return fmt.Sprintf("%dh ago", hr)
	}
	return fmt.Sprintf("%dd ago", hr/24)
}
