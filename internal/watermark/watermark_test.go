package watermark

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesFreshHistoryWhenFileAbsent(t *testing.T) {
	s := Open(t.TempDir(), "ns")
	h, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, int64(1), h.JobID)
	require.Empty(t, h.Tables)
}

func TestSaveIncrementsJobIDAndPersists(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir, "ns")
	_, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save())
	require.Equal(t, int64(2), s.JobID())

	reloaded := Open(dir, "ns")
	h, err := reloaded.Load()
	require.NoError(t, err)
	require.Equal(t, int64(2), h.JobID)
}

func TestGetTableHistoryIsCaseInsensitive(t *testing.T) {
	s := Open(t.TempDir(), "ns")
	_, err := s.Load()
	require.NoError(t, err)

	th := s.GetTableHistory("Customer")
	th.LastTimestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Same(t, th, s.GetTableHistory("CUSTOMER"))
	require.Same(t, th, s.GetTableHistory("customer"))
}

func TestExportRendersCurrentHistory(t *testing.T) {
	s := Open(t.TempDir(), "ns")
	_, err := s.Load()
	require.NoError(t, err)

	raw, err := s.Export()
	require.NoError(t, err)
	require.Contains(t, string(raw), `"job_id": 1`)
}

func TestLastCompletedJobBroadcastsOnSave(t *testing.T) {
	s := Open(t.TempDir(), "ns")
	_, err := s.Load()
	require.NoError(t, err)

	before, ch := s.LastCompletedJob()
	require.Zero(t, before)

	require.NoError(t, s.Save())

	select {
	case <-ch:
	default:
		t.Fatal("expected lastSaved channel to close after Save")
	}
	completed, _ := s.LastCompletedJob()
	require.Equal(t, int64(1), completed)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir, "ns")
	_, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save())

	// Corrupt the persisted version so a second Store refuses to load it.
	raw := []byte(`{"version": 99, "namespace": "ns", "job_id": 2, "tables": {}}`)
	require.NoError(t, os.WriteFile(s.path, raw, 0o644))

	other := Open(dir, "ns")
	_, err = other.Load()
	require.Error(t, err)
}
