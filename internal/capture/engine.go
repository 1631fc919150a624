package capture

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/nymics/udpcdc/internal/config"
	"github.com/nymics/udpcdc/internal/logging"
	"github.com/nymics/udpcdc/internal/metrics"
	"github.com/nymics/udpcdc/internal/objstore"
	"github.com/nymics/udpcdc/internal/sourcedb"
	"github.com/nymics/udpcdc/internal/sqlgen"
	"github.com/nymics/udpcdc/internal/watermark"
)

// Engine runs one namespace's Capture job loop, per spec.md §4.2: on
// each tick, compute the CDC window per table, extract rows, assemble a
// Bundle, upload it, and persist the new watermarks.
type Engine struct {
	Namespace  string
	Source     *sourcedb.Conn
	Tables     []config.TableSpec
	Watermarks *watermark.Store
	BatchSize  int

	// Capture is the capture-bucket handle. It is re-created by the
	// caller on every tick (spec.md §5) and may be nil when NoTransfer is
	// set.
	Capture    *objstore.Store
	NoTransfer bool

	lastStats []bundle.StatRow
}

// RunJob executes one full capture job: state machine
// idle→connect→window→per-table→compress→upload→persist, per spec.md
// §4.2.5. A failure before persist leaves JobHistory unchanged, so the
// job is retried with the same job_id on the next tick.
func (e *Engine) RunJob(ctx context.Context) (err error) {
	log := logging.For("capture", e.Namespace)
	jobID := e.Watermarks.JobID()
	started := time.Now()

	// Table watermarks are advanced in memory as each table is captured;
	// on any failure, reload the last persisted JobHistory so the retry
	// starts from the same windows and job_id.
	defer func() {
		if err != nil {
			if _, lerr := e.Watermarks.Load(); lerr != nil {
				log.WithError(lerr).Error("reloading watermarks after failed job")
			}
		}
	}()

	sourceNow, err := e.sourceNow(ctx)
	if err != nil {
		metrics.CaptureErrors.WithLabelValues(e.Namespace).Inc()
		return errors.Wrap(err, "reading source database clock")
	}
	windowEnd := WindowEnd(sourceNow)

	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)

	var stats []bundle.StatRow
	for _, t := range e.Tables {
		if t.IgnoreTable {
			continue
		}

		th := e.Watermarks.GetTableHistory(t.TableName)
		windowStart := WindowStart(th.LastTimestamp, t.FirstTimestamp)
		if WindowEmpty(windowStart, windowEnd) {
			th.SkipReason = "window empty"
			continue
		}

		rowCount, seconds, err := e.captureTable(ctx, w, t, jobID, windowStart, windowEnd, th)
		if err != nil {
			metrics.CaptureErrors.WithLabelValues(e.Namespace).Inc()
			return errors.Wrapf(err, "capturing table %s.%s", t.SchemaName, t.TableName)
		}
		th.SkipReason = ""
		th.LastTimestamp = windowEnd

		metrics.CaptureTableRows.WithLabelValues(e.Namespace, t.TableName).Add(float64(rowCount))
		stats = append(stats, bundle.StatRow{StatName: "capture", TableName: t.TableName, RowCount: rowCount, Seconds: seconds})
		log.WithField("table", t.TableName).WithField("rows", rowCount).Info("captured table")
	}

	if err := w.WriteJobLog(stats); err != nil {
		return errors.Wrap(err, "writing job.log")
	}
	if e.lastStats != nil {
		if err := w.WriteLastJobLog(e.lastStats); err != nil {
			return errors.Wrap(err, "writing last_job.log")
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "closing bundle")
	}

	if !e.NoTransfer {
		name := watermark.BundleName(e.Namespace, jobID)
		key := e.Namespace + "/" + name
		if err := e.Capture.Put(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
			return errors.Wrapf(err, "uploading bundle %s", key)
		}

		stateBuf, err := e.buildStateBundle(stats)
		if err != nil {
			return errors.Wrap(err, "building capture_state.zip")
		}
		stateKey := e.Namespace + "/capture_state.zip"
		if err := e.Capture.Put(ctx, stateKey, stateBuf); err != nil {
			return errors.Wrapf(err, "uploading %s", stateKey)
		}
	}

	e.lastStats = stats

	// Saved only after upload succeeds, per spec.md §4.2.4: "After
	// successful upload, call Watermark Store save(), which increments
	// job_id." A failure from here on is impossible because save() is the
	// last durable action.
	if err := e.Watermarks.Save(); err != nil {
		return errors.Wrap(err, "persisting watermarks")
	}

	metrics.CaptureWindowDurations.WithLabelValues(e.Namespace).Observe(time.Since(started).Seconds())
	return nil
}

// captureTable discovers a table's metadata, executes its CDC select,
// streams rows into batch files, and applies fingerprint suppression
// for non-CDC tables with an explicit sort order, per spec.md §4.2.3.
func (e *Engine) captureTable(
	ctx context.Context,
	w *bundle.Writer,
	t config.TableSpec,
	jobID int64,
	windowStart, windowEnd time.Time,
	th *watermark.TableHistory,
) (rowCount int64, seconds float64, err error) {
	started := time.Now()

	if t.DropTable {
		manifest := bundle.TableManifest{SchemaName: t.SchemaName, TableName: t.TableName, CDC: string(t.CDC), DropTable: true}
		if err := w.WriteTableManifest(t.TableName, manifest); err != nil {
			return 0, 0, err
		}
		return 0, time.Since(started).Seconds(), nil
	}

	cols, err := e.Source.DiscoverColumns(ctx, t.SchemaName, t.TableName, t.IgnoreColumns)
	if err != nil {
		return 0, 0, errors.Wrap(err, "discovering columns")
	}

	pk := t.PrimaryKey
	if len(pk) == 0 {
		pk, err = e.Source.DiscoverPrimaryKey(ctx, t.SchemaName, t.TableName)
		if err != nil {
			return 0, 0, errors.Wrap(err, "discovering primary key")
		}
	}

	cdc := t.CDC
	if len(pk) == 0 {
		// spec.md §4.2.3 step 2: "If still absent, force cdc=none."
		cdc = config.CDCNone
		t.CDC = cdc
	}

	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = c.Name
	}

	sel := sqlgen.BuildSelect(t, jobID, windowStart, windowEnd, colNames)
	sqlText := sel.String(windowStart, windowEnd)

	rows, err := e.Source.Query(ctx, sqlText)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	sink := newBatchSink(t.TableName, e.BatchSize)
	if err := streamTable(rows, sink); err != nil {
		return 0, 0, err
	}
	rowCount, fingerprint := sink.Finish()

	suppressed := false
	if cdc == config.CDCNone && t.Order != "" {
		if fingerprint == th.LastFilehash {
			suppressed = true
		} else {
			th.LastFilehash = fingerprint
		}
	}

	if suppressed {
		rowCount = 0
	} else if err := sink.Commit(w); err != nil {
		return 0, 0, err
	}

	manifest := bundle.TableManifest{
		SchemaName: t.SchemaName,
		TableName:  t.TableName,
		CDC:        string(cdc),
		PrimaryKey: pk,
	}
	if err := w.WriteTableManifest(t.TableName, manifest); err != nil {
		return 0, 0, err
	}
	if err := w.WriteTableSchema(t.TableName, cols); err != nil {
		return 0, 0, err
	}
	if err := w.WriteTablePK(t.TableName, pk); err != nil {
		return 0, 0, err
	}

	return rowCount, time.Since(started).Seconds(), nil
}

// sourceNow reads the source database's current time, per spec.md
// §4.2.1: "current_timestamp is taken from the source database (not the
// local clock)."
func (e *Engine) sourceNow(ctx context.Context) (time.Time, error) {
	var now time.Time
	rows, err := e.Source.Query(ctx, "select current_timestamp;")
	if err != nil {
		return time.Time{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		return time.Time{}, errors.New("source database returned no rows for current_timestamp")
	}
	if err := rows.Scan(&now); err != nil {
		return time.Time{}, errors.Wrap(err, "scanning source database clock")
	}
	return now, errors.Wrap(rows.Err(), "reading source database clock")
}

// buildStateBundle zips the current JobHistory alongside the just-
// written last_job.log, per spec.md §4.2.4: "zip the persistent state
// dir (containing JobHistory and last_job.log) as capture_state.zip ...
// This object is the recovery seed."
func (e *Engine) buildStateBundle(stats []bundle.StatRow) (*bytes.Reader, error) {
	history, err := e.Watermarks.Export()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	if err := w.WriteRaw("jobhistory.json", history); err != nil {
		return nil, err
	}
	if err := w.WriteLastJobLog(stats); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}
