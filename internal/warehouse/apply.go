package warehouse

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/nymics/udpcdc/internal/util/ident"
)

// Applier drives one table's apply step against the target warehouse,
// per spec.md §4.4.2: translate schema, create the target table on
// first sight, then dispatch to the full-refresh or CDC-merge path.
type Applier struct {
	pool *pgxpool.Pool
}

// NewApplier wraps a pool for table-apply operations.
func NewApplier(pool *pgxpool.Pool) *Applier {
	return &Applier{pool: pool}
}

// Apply applies one table's batch rows to namespace.tableName. rows are
// already in target-column order (the source columns selected by
// Capture, in schema order, followed by udp_jobid and udp_timestamp).
func (a *Applier) Apply(ctx context.Context, namespace string, manifest bundle.TableManifest, schemaCols []bundle.Column, rows [][]any) error {
	if manifest.DropTable {
		_, err := a.pool.Exec(ctx, DropTable(namespace, manifest.TableName))
		return errors.Wrapf(err, "dropping table %s.%s", namespace, manifest.TableName)
	}

	if _, err := a.pool.Exec(ctx, CreateSchema(namespace)); err != nil {
		return errors.Wrapf(err, "ensuring schema %s", namespace)
	}

	target := TranslateSchema(schemaCols)

	fullRefresh := manifest.CDC == "" || manifest.CDC == "none" || len(manifest.PrimaryKey) == 0
	if fullRefresh {
		return a.applyFullRefresh(ctx, namespace, manifest.TableName, target, rows)
	}
	return a.applyMerge(ctx, namespace, manifest.TableName, target, manifest.PrimaryKey, rows)
}

func (a *Applier) applyFullRefresh(ctx context.Context, namespace, table string, cols []TargetColumn, rows [][]any) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning full-refresh transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, DropTable(namespace, table)); err != nil {
		return errors.Wrapf(err, "dropping table %s.%s before full refresh", namespace, table)
	}
	if _, err := tx.Exec(ctx, CreateTable(namespace, table, cols)); err != nil {
		return errors.Wrapf(err, "creating table %s.%s", namespace, table)
	}
	if err := copyRows(ctx, tx, ident.NewTable(namespace, table).Raw(), namespace, table, cols, rows); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "committing full refresh")
}

func (a *Applier) applyMerge(ctx context.Context, namespace, table string, cols []TargetColumn, pk []string, rows [][]any) error {
	if err := a.ensureTargetExists(ctx, namespace, table, cols); err != nil {
		return err
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning merge transaction")
	}
	defer tx.Rollback(ctx)

	tempName := "temp_" + strings.ToLower(table)
	if _, err := tx.Exec(ctx, CreateTempTable(tempName, cols)); err != nil {
		return errors.Wrapf(err, "creating temp table for %s.%s", namespace, table)
	}
	if err := copyTempRows(ctx, tx, tempName, cols, rows); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, MergeStatement(namespace, table, tempName, cols, pk)); err != nil {
		return errors.Wrapf(err, "merging into %s.%s", namespace, table)
	}
	if _, err := tx.Exec(ctx, DropTempTable(tempName)); err != nil {
		return errors.Wrapf(err, "dropping temp table for %s.%s", namespace, table)
	}
	return errors.Wrap(tx.Commit(ctx), "committing merge")
}

func (a *Applier) ensureTargetExists(ctx context.Context, namespace, table string, cols []TargetColumn) error {
	var exists bool
	err := a.pool.QueryRow(ctx, `
		select exists (
			select 1 from information_schema.tables
			where table_schema = $1 and table_name = $2
		)`, namespace, table).Scan(&exists)
	if err != nil {
		return errors.Wrapf(err, "checking existence of %s.%s", namespace, table)
	}
	if exists {
		return nil
	}
	_, err = a.pool.Exec(ctx, CreateTable(namespace, table, cols))
	return errors.Wrapf(err, "creating table %s.%s", namespace, table)
}

func copyRows(ctx context.Context, tx pgx.Tx, rawName, namespace, table string, cols []TargetColumn, rows [][]any) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	coerced := coerceRows(cols, rows)
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{namespace, table},
		names,
		pgx.CopyFromRows(coerced),
	)
	return errors.Wrapf(err, "bulk inserting into %s", rawName)
}

func copyTempRows(ctx context.Context, tx pgx.Tx, tempName string, cols []TargetColumn, rows [][]any) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	coerced := coerceRows(cols, rows)
	_, err := tx.CopyFrom(ctx, pgx.Identifier{tempName}, names, pgx.CopyFromRows(coerced))
	return errors.Wrapf(err, "bulk inserting into temp table %s", tempName)
}

func coerceRows(cols []TargetColumn, rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		coercedRow := make([]any, len(row))
		for j, v := range row {
			if j < len(cols) {
				coercedRow[j] = CoerceValue(cols[j].TargetType, v)
			} else {
				coercedRow[j] = v
			}
		}
		out[i] = coercedRow
	}
	return out
}
