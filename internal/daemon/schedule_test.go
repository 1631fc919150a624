package daemon

import (
	"testing"
	"time"

	"github.com/nymics/udpcdc/internal/config"
	"github.com/stretchr/testify/require"
)

func TestScheduleIntervalDefaultsWhenUnconfigured(t *testing.T) {
	s := NewSchedule(config.ScheduleSpec{})
	require.Equal(t, 15*time.Second, s.Interval())
	require.True(t, s.Due())
}

func TestScheduleEveryNSeconds(t *testing.T) {
	s := NewSchedule(config.ScheduleSpec{EverySecond: 30})
	require.Equal(t, 30*time.Second, s.Interval())
	require.True(t, s.Due())
}

func TestScheduleTimeOfDayGatesOnWeekday(t *testing.T) {
	spec := config.ScheduleSpec{
		AtTimeOfDay: "09:00",
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
	}
	s := NewSchedule(spec)

	s.now = func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) } // Tuesday
	require.False(t, s.Due())

	s.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) } // Monday
	require.True(t, s.Due())

	s.now = func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) } // wrong time
	require.False(t, s.Due())
}
