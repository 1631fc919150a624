package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// catalogDDL creates the three warehouse-resident tables Archive and
// Stage coordinate through, per spec.md §4.4.1/§4.3: stage_arrival_queue
// (one row per bundle Archive has delivered), stage_pending_queue (the
// per-namespace in-order dispatch handshake), and stat_log (per-step
// metrics copied out of job.log/last_job.log).
const catalogDDL = `
create schema if not exists udpcdc_catalog;

create table if not exists udpcdc_catalog.stage_arrival_queue (
  namespace text not null,
  job_id bigint not null,
  object_key text not null,
  arrived_at timestamptz not null default now(),
  primary key (namespace, job_id)
);

create table if not exists udpcdc_catalog.stage_pending_queue (
  namespace text not null,
  job_id bigint not null,
  primary key (namespace, job_id)
);

create table if not exists udpcdc_catalog.stat_log (
  namespace text not null,
  job_id bigint not null,
  stat_name text not null,
  table_name text not null default '',
  row_count bigint,
  seconds double precision,
  primary key (namespace, job_id, stat_name, table_name)
);
`

// EnsureCatalog creates the catalog schema and tables if they don't
// already exist. It is safe to call on every Archive/Stage startup.
func EnsureCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, catalogDDL)
	return errors.Wrap(err, "ensuring warehouse catalog schema")
}

// InsertArrival records one bundle's arrival, per spec.md §4.3 step e
// ("insert a row into stage_arrival_queue"). A conflict on the
// (namespace, job_id) primary key is treated as success, per spec.md §7:
// "Duplicate arrival insert ... is treated as success."
func InsertArrival(ctx context.Context, pool *pgxpool.Pool, namespace string, jobID int64, objectKey string) error {
	_, err := pool.Exec(ctx, `
		insert into udpcdc_catalog.stage_arrival_queue (namespace, job_id, object_key)
		values ($1, $2, $3)
		on conflict (namespace, job_id) do nothing`,
		namespace, jobID, objectKey)
	return errors.Wrap(err, "inserting stage arrival row")
}

// EnqueuePending adds a bundle to the per-namespace pending queue, for
// Stage's in-order dispatch handshake (spec.md §4.4.1).
func EnqueuePending(ctx context.Context, pool *pgxpool.Pool, namespace string, jobID int64) error {
	_, err := pool.Exec(ctx, `
		insert into udpcdc_catalog.stage_pending_queue (namespace, job_id)
		values ($1, $2)
		on conflict (namespace, job_id) do nothing`,
		namespace, jobID)
	return errors.Wrap(err, "enqueuing stage pending row")
}

// NextPending returns the lowest outstanding job_id for namespace, or
// ok=false if the pending queue is empty, enforcing spec.md §8 invariant
// 3: "bundle k+1 cannot be applied before k is removed from the pending
// queue."
func NextPending(ctx context.Context, pool *pgxpool.Pool, namespace string) (jobID int64, ok bool, err error) {
	row := pool.QueryRow(ctx, `
		select job_id from udpcdc_catalog.stage_pending_queue
		where namespace = $1
		order by job_id asc
		limit 1`, namespace)
	if scanErr := row.Scan(&jobID); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(scanErr, "reading next pending job")
	}
	return jobID, true, nil
}

// ArrivalQueueDepth returns the number of bundles currently queued for
// namespace in stage_arrival_queue, feeding internal/metrics.StageQueueDepth.
func ArrivalQueueDepth(ctx context.Context, pool *pgxpool.Pool, namespace string) (int64, error) {
	var count int64
	err := pool.QueryRow(ctx, `
		select count(*) from udpcdc_catalog.stage_arrival_queue
		where namespace = $1`, namespace).Scan(&count)
	return count, errors.Wrap(err, "counting stage arrival queue depth")
}

// CompletePending removes a job from the pending queue once Stage has
// durably applied it.
func CompletePending(ctx context.Context, pool *pgxpool.Pool, namespace string, jobID int64) error {
	_, err := pool.Exec(ctx, `
		delete from udpcdc_catalog.stage_pending_queue
		where namespace = $1 and job_id = $2`, namespace, jobID)
	return errors.Wrap(err, "completing stage pending row")
}

// InsertStat records one stat_log row, per spec.md §7: "every stage
// writes a stats file and, where applicable, a row into stat_log for
// each logical step." The (namespace, job_id, stat_name, table_name)
// primary key makes this safe to call again for the same row on relay
// redelivery (spec.md §4.3: the object copy and arrival insert can
// succeed while the queue-message delete still fails, so Archive
// retries the same message).
func InsertStat(ctx context.Context, pool *pgxpool.Pool, namespace string, jobID int64, statName, tableName string, rowCount int64, seconds float64) error {
	_, err := pool.Exec(ctx, `
		insert into udpcdc_catalog.stat_log (namespace, job_id, stat_name, table_name, row_count, seconds)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (namespace, job_id, stat_name, table_name) do nothing`,
		namespace, jobID, statName, tableName, rowCount, seconds)
	return errors.Wrap(err, "inserting stat_log row")
}
