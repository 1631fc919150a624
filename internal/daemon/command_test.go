package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFilePollReadsAndDeletesVerb(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture_sales.listen")
	require.NoError(t, os.WriteFile(path, []byte("pause\n"), 0o644))

	cf := NewCommandFile(path)
	action, arg := cf.Poll()
	require.Equal(t, ActionPause, action)
	require.Equal(t, "", arg)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestCommandFilePollNoFileIsActionNone(t *testing.T) {
	cf := NewCommandFile(filepath.Join(t.TempDir(), "missing.listen"))
	action, _ := cf.Poll()
	require.Equal(t, ActionNone, action)
}

func TestCommandFilePollWithArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage_sales.listen")
	require.NoError(t, os.WriteFile(path, []byte("restart now please\n"), 0o644))

	cf := NewCommandFile(path)
	action, arg := cf.Poll()
	require.Equal(t, ActionRestart, action)
	require.Equal(t, "now please", arg)
}

func TestCountersSnapshot(t *testing.T) {
	var c Counters
	c.tick()
	c.tick()
	c.success()
	c.failure()

	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.Ticks)
	require.Equal(t, int64(1), snap.Successes)
	require.Equal(t, int64(1), snap.Failures)
}
