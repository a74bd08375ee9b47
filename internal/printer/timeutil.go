package printer

import (
	"fmt"
	"time"
)

// TimeAgo renders how long ago a task timestamp happened, in UTC. Task
// timestamps are written by the repository, so they are never meaningfully in
// the future; sub-second differences render as "just now".
func TimeAgo(t time.Time) string {
	diff := time.Now().UTC().Sub(t.UTC())

	switch {
	case diff < time.Second:
		return "just now (UTC)"
	case diff < time.Minute:
		return agoString(int(diff.Seconds()), "second")
	case diff < time.Hour:
		return agoString(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return agoString(int(diff.Hours()), "hour")
	}

	return agoString(int(diff.Hours()/24), "day")
}

func agoString(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago (UTC)", n, unit)
}

// FormatTimestamp renders an absolute timestamp in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
