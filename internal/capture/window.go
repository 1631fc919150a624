// Package capture implements the Capture engine described in
// spec.md §4.2: compute each table's CDC window, extract rows, package
// them into a Bundle, upload it, and persist new watermarks.
package capture

import "time"

// StepBack is the safety margin subtracted from the source database's
// clock before computing a window end, per spec.md §4.2.1: "Subtracted
// by exactly 60 seconds to avoid reading rows from in-flight
// transactions."
const StepBack = 60 * time.Second

// WindowEnd derives the window-end timestamp from the source
// database's current time: step back 60 seconds, then truncate to
// whole seconds.
func WindowEnd(sourceNow time.Time) time.Time {
	return sourceNow.Add(-StepBack).Truncate(time.Second)
}

// WindowStart resolves a table's window start: its last recorded
// timestamp, or firstTimestamp when none has been recorded yet, per
// spec.md §4.2.1: "If a table's last_timestamp is unset, it is
// initialized from its first_timestamp."
func WindowStart(lastTimestamp, firstTimestamp time.Time) time.Time {
	if lastTimestamp.IsZero() {
		return firstTimestamp
	}
	return lastTimestamp
}

// WindowEmpty reports whether a table should be skipped this job
// because its window start is after the window end, per spec.md §4.2.1:
// "If last_timestamp > current_timestamp, the table is skipped for this
// job (not an error)."
func WindowEmpty(windowStart, windowEnd time.Time) bool {
	return windowStart.After(windowEnd)
}
