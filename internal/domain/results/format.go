package results

import (
	"fmt"
	"time"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond

	// LeaderLabel is the time difference shown for rank 1.
	LeaderLabel = "Leader"
)

// FormatElapsed renders milliseconds as HH:MM:SS. Values of 24h or more wrap
// around; results that long carry FlagExceedsMaxDuration with the default
// settings.
func FormatElapsed(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.TimeOnly)
}

// FormatGap renders a non-negative gap to the leader as "+M:SS". Seconds are
// rounded half up; a rounded 60 carries into the minutes.
func FormatGap(gapMs int64) string {
	if gapMs < 0 {
		gapMs = -gapMs
	}
	minutes := gapMs / msPerMinute
	seconds := (gapMs%msPerMinute + msPerSecond/2) / msPerSecond
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf("+%d:%02d", minutes, seconds)
}
