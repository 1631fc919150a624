// Package watermark persists per-namespace JobHistory: the current
// job counter and the per-table CDC high-water marks and content
// fingerprints described in spec.md §3-4.1.
//
// The on-disk format is an explicit, versioned JSON record (design note
// in spec.md §9: "use an explicit, versioned record with a stable
// on-disk format ... and reject unknown versions rather than attempting
// migration"). Saves are atomic: written to a temp file in the same
// directory, then renamed over the destination, so a crash mid-write
// never leaves a corrupt or partial file visible to a future load.
package watermark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/util/notify"
)

// CurrentVersion is the on-disk schema version written by Save. Load
// rejects any file whose Version field does not match.
const CurrentVersion = 1

// TableHistory is the per-(namespace, table) watermark record described
// in spec.md §3.
type TableHistory struct {
	LastTimestamp  time.Time `json:"last_timestamp"`
	LastRowversion string    `json:"last_rowversion,omitempty"`
	LastFilehash   string    `json:"last_filehash,omitempty"`

	// SkipReason is set transiently by the capture engine to "window
	// empty" when a table's CDC window is empty for the current job, and
	// cleared once the table is captured. It is never persisted.
	SkipReason string `json:"-"`
}

// JobHistory is the persisted per-namespace state described in
// spec.md §3: the current job counter and the table watermark map.
type JobHistory struct {
	Version   int                     `json:"version"`
	Namespace string                  `json:"namespace"`
	JobID     int64                   `json:"job_id"`
	Tables    map[string]*TableHistory `json:"tables"`
}

// Store loads and saves a single namespace's JobHistory to a file on
// disk. It is not safe for concurrent use by multiple processes; the
// spec assumes one Capture instance per namespace.
type Store struct {
	path      string
	namespace string

	mu      sync.Mutex
	history *JobHistory

	// lastSaved broadcasts the job id of the most recently completed
	// Save, so a status reporter or test can wait for the next
	// completed job instead of polling the watermark file on disk.
	lastSaved notify.Var[int64]
}

// Open prepares a Store rooted at dir/<namespace>.jobhistory.json. The
// file is not read until Load is called.
func Open(dir, namespace string) *Store {
	return &Store{
		path:      filepath.Join(dir, namespace+".jobhistory.json"),
		namespace: namespace,
	}
}

// Load reads the JobHistory from disk. If the file does not exist, a
// fresh JobHistory is returned with JobID=1 and an empty table map, per
// spec.md §4.1. A corrupted or version-mismatched file is fatal: it is
// reported, not silently reset.
func (s *Store) Load() (*JobHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.history = &JobHistory{
			Version:   CurrentVersion,
			Namespace: s.namespace,
			JobID:     1,
			Tables:    make(map[string]*TableHistory),
		}
		return s.history, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading watermark file %s", s.path)
	}

	var h JobHistory
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, errors.Wrapf(err, "watermark file %s is corrupt", s.path)
	}
	if h.Version != CurrentVersion {
		return nil, errors.Errorf(
			"watermark file %s has unsupported version %d (expected %d); refusing to auto-migrate",
			s.path, h.Version, CurrentVersion,
		)
	}
	if h.Tables == nil {
		h.Tables = make(map[string]*TableHistory)
	}
	s.history = &h
	return s.history, nil
}

// GetTableHistory returns the TableHistory entry for a table name,
// creating an empty one on first access. Names are compared
// case-insensitively, per spec.md §4.1.
func (s *Store) GetTableHistory(tableName string) *TableHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(tableName)
	if th, ok := s.history.Tables[key]; ok {
		return th
	}
	th := &TableHistory{}
	s.history.Tables[key] = th
	return th
}

// Save atomically persists the JobHistory and increments JobID for the
// next job, per spec.md §4.1/§9. The write-temp-then-rename sequence
// guarantees no partial state is ever observable: either the rename
// succeeds and the new JobID is durable, or it doesn't and the prior
// file (with the prior JobID) is untouched.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := s.history.JobID
	s.history.JobID++
	s.history.Version = CurrentVersion
	s.history.Namespace = s.namespace

	raw, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding watermark file")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".jobhistory-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp watermark file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp watermark file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing temp watermark file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp watermark file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "renaming temp watermark file into place")
	}
	s.lastSaved.Set(completed)
	return nil
}

// LastCompletedJob returns the job id most recently durably saved, and
// a channel that closes the next time a job completes. A status
// reporter can select on the channel instead of polling the watermark
// file.
func (s *Store) LastCompletedJob() (int64, <-chan struct{}) {
	return s.lastSaved.Get()
}

// JobID returns the current, not-yet-saved job counter. Capture assigns
// this value to a job before extraction begins.
func (s *Store) JobID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.JobID
}

// Export renders the current JobHistory as indented JSON, for bundling
// into capture_state.zip alongside last_job.log (spec.md §4.2.4).
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(s.history, "", "  ")
	return raw, errors.Wrap(err, "encoding job history for export")
}

// BundleName renders "<namespace>#<job_id:9-digit-zero-padded>.zip" per
// spec.md §3.
func BundleName(namespace string, jobID int64) string {
	return fmt.Sprintf("%s#%09d.zip", namespace, jobID)
}
