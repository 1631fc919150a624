// Package stage implements the Stage Loader described in spec.md §4.4:
// a long-running loop enforcing per-namespace in-order delivery of
// captured bundles into the target warehouse.
package stage

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
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

// Loader drives one namespace's stage dispatch loop against a shared
// warehouse pool.
type Loader struct {
	Namespace string
	Archive   *objstore.Store
	Catalog   *pgxpool.Pool
	Applier   *warehouse.Applier

	// Notify optionally posts a message to the downstream stage
	// notification queue after a bundle is durably applied, per spec.md
	// §4.4.1 step 3.
	Notify *queue.Queue
}

// DispatchNext applies the next eligible bundle for this namespace, if
// any is available, per spec.md §4.4.1. It returns applied=false when
// no bundle currently satisfies the in-order handshake.
func (l *Loader) DispatchNext(ctx context.Context) (applied bool, err error) {
	if depth, derr := warehouse.ArrivalQueueDepth(ctx, l.Catalog, l.Namespace); derr == nil {
		metrics.StageQueueDepth.WithLabelValues(l.Namespace).Set(float64(depth))
	}

	jobID, objectKey, ok, err := l.nextArrival(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	started := time.Now()
	log := logging.For("stage", l.Namespace)

	if err := l.applyBundle(ctx, objectKey); err != nil {
		metrics.StageLoadErrors.WithLabelValues(l.Namespace, "").Inc()
		return false, errors.Wrapf(err, "applying bundle %s", objectKey)
	}

	if err := l.completeDispatch(ctx, jobID); err != nil {
		return false, err
	}

	if l.Notify != nil {
		if err := l.Notify.Send(ctx, l.Namespace+"#"+objectKey); err != nil {
			log.WithError(err).Warn("failed to post downstream stage notification")
		}
	}

	metrics.StageLoadDurations.WithLabelValues(l.Namespace, "").Observe(time.Since(started).Seconds())
	log.WithField("job_id", jobID).Info("applied bundle")
	return true, nil
}

// nextArrival selects the next bundle to stage: an arrival row whose
// job_id equals the namespace's pending job_id, or 1 when no pending
// entry exists yet, per spec.md §4.4.1 step 1.
func (l *Loader) nextArrival(ctx context.Context) (jobID int64, objectKey string, ok bool, err error) {
	pending, havePending, err := warehouse.NextPending(ctx, l.Catalog, l.Namespace)
	if err != nil {
		return 0, "", false, err
	}
	want := int64(1)
	if havePending {
		want = pending
	}

	row := l.Catalog.QueryRow(ctx, `
		select object_key from udpcdc_catalog.stage_arrival_queue
		where namespace = $1 and job_id = $2`, l.Namespace, want)
	if scanErr := row.Scan(&objectKey); scanErr != nil {
		return 0, "", false, nil
	}
	return want, objectKey, true, nil
}

// completeDispatch removes the processed bundle from both queues and
// enqueues the next expected job id, per spec.md §4.4.1 step 3.
func (l *Loader) completeDispatch(ctx context.Context, jobID int64) error {
	if _, err := l.Catalog.Exec(ctx, `
		delete from udpcdc_catalog.stage_arrival_queue
		where namespace = $1 and job_id = $2`, l.Namespace, jobID); err != nil {
		return errors.Wrap(err, "removing stage arrival row")
	}
	if err := warehouse.CompletePending(ctx, l.Catalog, l.Namespace, jobID); err != nil {
		return err
	}
	return warehouse.EnqueuePending(ctx, l.Catalog, l.Namespace, jobID+1)
}

// applyBundle downloads, parses, and applies every table in one bundle,
// per spec.md §4.4.2.
func (l *Loader) applyBundle(ctx context.Context, objectKey string) error {
	body, err := l.Archive.Get(ctx, objectKey)
	if err != nil {
		return errors.Wrap(err, "downloading bundle from archive")
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return errors.Wrap(err, "reading bundle")
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return errors.Wrap(err, "opening bundle zip")
	}
	reader := bundle.OpenReader(zr)

	if _, err := l.Catalog.Exec(ctx, warehouse.CreateSchema(l.Namespace)); err != nil {
		return errors.Wrap(err, "ensuring target schema")
	}

	for _, table := range reader.Tables() {
		if err := l.applyTable(ctx, reader, table); err != nil {
			// spec.md §7: "If the target DDL rejects the CREATE/MERGE, the
			// bundle is considered fatal for that table and logged; the
			// operator must intervene." We treat the whole bundle as failed
			// so it is retried rather than silently skipped.
			return errors.Wrapf(err, "table %s", table)
		}
	}
	return nil
}

func (l *Loader) applyTable(ctx context.Context, reader *bundle.Reader, table string) error {
	manifest, ok, err := reader.ReadTableManifest(table)
	if err != nil {
		return err
	}
	if !ok {
		logging.For("stage", l.Namespace).Warnf("skipping table %s: missing manifest", table)
		return nil
	}

	// A drop_table bundle carries only the manifest, no schema or pk.
	if manifest.DropTable {
		return l.Applier.Apply(ctx, l.Namespace, manifest, nil, nil)
	}

	schemaCols, ok, err := reader.ReadTableSchema(table)
	if err != nil {
		return err
	}
	if !ok {
		// spec.md §7: "Malformed bundle (missing T.schema or T.pk): skip
		// that table, continue the bundle, log the table."
		logging.For("stage", l.Namespace).Warnf("skipping table %s: missing schema", table)
		return nil
	}

	pk, ok, err := reader.ReadTablePK(table)
	if err != nil {
		return err
	}
	if !ok {
		logging.For("stage", l.Namespace).Warnf("skipping table %s: missing primary key file", table)
		return nil
	}
	manifest.PrimaryKey = pk

	var rows [][]any
	for _, name := range reader.BatchFiles(table) {
		rc, err := reader.OpenEntry(name)
		if err != nil {
			return err
		}
		batch, err := decodeBatch(rc)
		rc.Close()
		if err != nil {
			return errors.Wrapf(err, "decoding batch %s", name)
		}
		rows = append(rows, batch...)
	}

	return l.Applier.Apply(ctx, l.Namespace, manifest, schemaCols, rows)
}
