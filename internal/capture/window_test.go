package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowEndStepsBackAndTruncates(t *testing.T) {
	sourceNow := time.Date(2024, 1, 2, 12, 1, 30, 500_000_000, time.UTC)
	end := WindowEnd(sourceNow)
	require.Equal(t, time.Date(2024, 1, 2, 12, 0, 30, 0, time.UTC), end)
	require.Zero(t, end.Nanosecond())
}

func TestWindowStartFallsBackToFirstTimestamp(t *testing.T) {
	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, first, WindowStart(time.Time{}, first))

	last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, last, WindowStart(last, first))
}

func TestWindowEmptyWhenStartAfterEnd(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, WindowEmpty(start, end))
	require.False(t, WindowEmpty(end, start))
}
