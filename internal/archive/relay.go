// Package archive implements the Archive Relay described in spec.md
// §4.3: a queue-driven loop that copies capture objects into the
// archive bucket, records their stat_log rows and arrival queue entry,
// then deletes the source object and queue message.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/nymics/udpcdc/internal/logging"
	"github.com/nymics/udpcdc/internal/metrics"
	"github.com/nymics/udpcdc/internal/objstore"
	"github.com/nymics/udpcdc/internal/queue"
	"github.com/nymics/udpcdc/internal/warehouse"
)

// StateObjectName is the special capture-state key basename that
// Archive always ignores, per spec.md §4.3 step b and §7: "capture_state.zip
// notifications: always skipped by Archive."
const StateObjectName = "capture_state.zip"

// Relay processes one namespace's capture notification queue against a
// shared warehouse catalog pool.
type Relay struct {
	Namespace  string
	Queue      *queue.Queue
	CaptureNew func(ctx context.Context) (*objstore.Store, error)
	Archive    *objstore.Store
	Catalog    *pgxpool.Pool

	PollFrequency time.Duration
}

// Drain processes every currently-available message once, returning the
// count handled. It does not block waiting for new messages beyond the
// queue's receive wait. Drain does not read PollFrequency: the daemon
// loop calls it again on its next scheduled tick, whatever the count.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	msgs, err := r.Queue.Receive(ctx, 10)
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if err := r.process(ctx, msg); err != nil {
			// spec.md §4.3 failure policy: abort this message, leave it for
			// redelivery, continue with the rest of the drained batch.
			logging.For("archive", r.Namespace).WithError(err).Warn("relay message failed, left for redelivery")
			metrics.ArchiveRelayErrors.WithLabelValues(r.Namespace).Inc()
			continue
		}
		handled++
	}
	return handled, nil
}

func (r *Relay) process(ctx context.Context, msg queue.Message) error {
	started := time.Now()
	notif := msg.Decode()

	if notif.ObjectKey == "" {
		// spec.md §7: "Missing or empty object key in a notification: log
		// and drop the message."
		logging.For("archive", r.Namespace).Warnf("dropping message %s: empty object key", msg.ID)
		return r.Queue.Delete(ctx, msg.ReceiptHandle)
	}

	if path.Base(notif.ObjectKey) == StateObjectName {
		return r.Queue.Delete(ctx, msg.ReceiptHandle)
	}

	capture, err := r.CaptureNew(ctx)
	if err != nil {
		return errors.Wrap(err, "connecting to capture object store")
	}

	body, err := capture.Get(ctx, notif.ObjectKey)
	if err != nil {
		return errors.Wrap(err, "downloading capture object")
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return errors.Wrap(err, "reading capture object")
	}

	if err := r.Archive.Put(ctx, notif.ObjectKey, bytes.NewReader(raw)); err != nil {
		return errors.Wrap(err, "copying object into archive bucket")
	}

	namespace, jobID, err := parseBundleKey(notif.ObjectKey)
	if err != nil {
		return err
	}

	if err := r.recordStats(ctx, raw, namespace, jobID); err != nil {
		return err
	}

	if err := warehouse.InsertArrival(ctx, r.Catalog, namespace, jobID, notif.ObjectKey); err != nil {
		return err
	}

	if err := capture.Delete(ctx, notif.ObjectKey); err != nil {
		return errors.Wrap(err, "deleting source capture object")
	}
	if err := r.Queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		return errors.Wrap(err, "deleting queue message")
	}

	metrics.ArchiveRelayDurations.WithLabelValues(namespace).Observe(time.Since(started).Seconds())
	return nil
}

// recordStats opens the archived zip, parses job.log and last_job.log,
// and inserts the rows stat_log accepts, per spec.md §4.3 step e:
// "from job.log skip rows whose stat_name = 'capture' (intermediate);
// from last_job.log accept stat_name ∈ {capture, compress, upload}."
func (r *Relay) recordStats(ctx context.Context, raw []byte, namespace string, jobID int64) error {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return errors.Wrap(err, "opening archived bundle")
	}
	reader := bundle.OpenReader(zr)

	if rows, ok, err := reader.ReadJobLog(); err != nil {
		return err
	} else if ok {
		for _, row := range rows {
			if row.StatName == "capture" {
				continue
			}
			if err := warehouse.InsertStat(ctx, r.Catalog, namespace, jobID, row.StatName, row.TableName, row.RowCount, row.Seconds); err != nil {
				return err
			}
		}
	}

	if rows, ok, err := reader.ReadLastJobLog(); err != nil {
		return err
	} else if ok {
		for _, row := range rows {
			if row.StatName != "capture" && row.StatName != "compress" && row.StatName != "upload" {
				continue
			}
			if err := warehouse.InsertStat(ctx, r.Catalog, namespace, jobID, row.StatName, row.TableName, row.RowCount, row.Seconds); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseBundleKey extracts the namespace and job id from a key of the
// form "<namespace>/<namespace>#<job_id>.zip", per spec.md §6.
func parseBundleKey(key string) (namespace string, jobID int64, err error) {
	base := path.Base(key)
	idx := strings.LastIndexByte(base, '#')
	if idx < 0 || !strings.HasSuffix(base, ".zip") {
		return "", 0, errors.Errorf("malformed bundle key %q", key)
	}
	namespace = base[:idx]
	numeric := strings.TrimSuffix(base[idx+1:], ".zip")
	n, err := strconv.ParseInt(numeric, 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "parsing job id from key %q", key)
	}
	return namespace, n, nil
}
