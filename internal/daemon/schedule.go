package daemon

import (
	"time"

	"github.com/nymics/udpcdc/internal/config"
)

// Schedule evaluates a config.ScheduleSpec against wall-clock time. It
// is a minimal cron-like predicate, not a general cron grammar: either a
// fixed interval (every_seconds) or a daily time-of-day window
// restricted to a weekday set, matching dev/src/daemon.py's
// schedule.wait() role in the run loop.
type Schedule struct {
	spec config.ScheduleSpec
	now  func() time.Time
}

// NewSchedule builds a Schedule from spec, using time.Now for wall
// clock unless overridden (tests substitute a fixed clock).
func NewSchedule(spec config.ScheduleSpec) *Schedule {
	return &Schedule{spec: spec, now: time.Now}
}

// Due reports whether the schedule's predicate is satisfied right now.
// An interval schedule is always "due" on every tick at the configured
// cadence is left to the daemon's tick sleep; Due itself just checks the
// weekday/time-of-day gate when one is configured.
func (s *Schedule) Due() bool {
	if s.spec.AtTimeOfDay == "" {
		return true
	}

	now := s.now()
	if len(s.spec.Weekdays) > 0 && !containsWeekday(s.spec.Weekdays, now.Weekday()) {
		return false
	}

	at, err := time.Parse("15:04", s.spec.AtTimeOfDay)
	if err != nil {
		return true
	}
	return now.Hour() == at.Hour() && now.Minute() == at.Minute()
}

// Interval returns the configured tick interval, defaulting to 15
// seconds when the schedule has neither an interval nor a
// time-of-day window configured.
func (s *Schedule) Interval() time.Duration {
	if s.spec.EverySecond > 0 {
		return time.Duration(s.spec.EverySecond) * time.Second
	}
	if s.spec.AtTimeOfDay != "" {
		return time.Minute
	}
	return 15 * time.Second
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}
