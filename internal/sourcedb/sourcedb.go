// Package sourcedb discovers table metadata and streams change rows out
// of the source databases that Capture extracts from (spec.md §4.2).
// It speaks to whatever dialect the [database:name] record names via
// internal/dbpool, and limits itself to the ANSI information_schema
// views so the same discovery queries work against the mysql and
// postgres/pgx drivers the teacher's go.mod already carries.
package sourcedb

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/nymics/udpcdc/internal/config"
	"github.com/nymics/udpcdc/internal/dbpool"
)

// Conn is a handle to one source database, bound to the dialect named
// in its DatabaseSpec.
type Conn struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database described by spec.
func Open(ctx context.Context, spec config.DatabaseSpec) (*Conn, error) {
	db, err := dbpool.Open(ctx, spec.Driver, spec.DSN,
		dbpool.WithPoolSize(spec.MaxConns),
		dbpool.WithWaitForStartup(5),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "opening source database %s", spec.Name)
	}
	return &Conn{db: db, driver: spec.Driver}, nil
}

// Close releases the underlying pool.
func (c *Conn) Close() error {
	return c.db.Close()
}

// columnRow mirrors one information_schema.columns row across the
// dialects in use; nullable columns are compared against "YES".
type columnRow struct {
	ColumnName    string  `db:"column_name"`
	DataType      string  `db:"data_type"`
	CharMaxLength *int64  `db:"character_maximum_length"`
	NumPrecision  *int64  `db:"numeric_precision"`
	IsNullable    string  `db:"is_nullable"`
}

// DiscoverColumns reads column metadata for schema.table, honoring
// ignoreColumns glob patterns per spec.md §4.2.3 ("columns matching an
// ignore_columns glob are excluded from both discovery and selection").
func (c *Conn) DiscoverColumns(ctx context.Context, schema, table string, ignoreColumns []string) ([]bundle.Column, error) {
	const q = `
		select column_name, data_type, character_maximum_length, numeric_precision, is_nullable
		from information_schema.columns
		where table_schema = ? and table_name = ?
		order by ordinal_position`

	var rows []columnRow
	if err := c.db.SelectContext(ctx, &rows, c.db.Rebind(q), schema, table); err != nil {
		return nil, errors.Wrapf(err, "discovering columns for %s.%s", schema, table)
	}

	cols := make([]bundle.Column, 0, len(rows))
	for _, r := range rows {
		if matchesAny(r.ColumnName, ignoreColumns) {
			continue
		}
		col := bundle.Column{
			Name:     r.ColumnName,
			Type:     r.DataType,
			Nullable: strings.EqualFold(r.IsNullable, "YES"),
		}
		if r.CharMaxLength != nil {
			col.Length = int(*r.CharMaxLength)
		}
		if r.NumPrecision != nil {
			col.Precision = int(*r.NumPrecision)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// DiscoverPrimaryKey reads the primary-key column list for schema.table
// in ordinal order, used when a TableSpec doesn't declare one
// explicitly (spec.md §3: "primary_key ... if absent, discovered from
// the source database's key constraints").
func (c *Conn) DiscoverPrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	const q = `
		select kcu.column_name
		from information_schema.table_constraints tc
		join information_schema.key_column_usage kcu
			on tc.constraint_name = kcu.constraint_name
			and tc.table_schema = kcu.table_schema
		where tc.table_schema = ?
			and tc.table_name = ?
			and tc.constraint_type = 'PRIMARY KEY'
		order by kcu.ordinal_position`

	var cols []string
	if err := c.db.SelectContext(ctx, &cols, c.db.Rebind(q), schema, table); err != nil {
		return nil, errors.Wrapf(err, "discovering primary key for %s.%s", schema, table)
	}
	return cols, nil
}

// ColumnNames discovers and returns only the column names, for building
// the select list passed to internal/sqlgen.
func (c *Conn) ColumnNames(ctx context.Context, schema, table string, ignoreColumns []string) ([]string, error) {
	cols, err := c.DiscoverColumns(ctx, schema, table, ignoreColumns)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	return names, nil
}

// Query executes sqlText (built by internal/sqlgen) and returns a
// streaming row cursor; the caller is responsible for closing it.
func (c *Conn) Query(ctx context.Context, sqlText string) (*sqlx.Rows, error) {
	rows, err := c.db.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, errors.Wrap(err, "executing capture select")
	}
	return rows, nil
}

// RowValues scans the current row of rows into a column-ordered slice
// of driver values, suitable for direct JSON encoding into a batch
// file per spec.md §3 ("T#NNNN.json — a JSON array of row arrays").
func RowValues(rows *sqlx.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "reading result columns")
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, errors.Wrap(err, "scanning capture row")
	}
	for i, v := range raw {
		raw[i] = normalizeValue(v)
	}
	return raw, nil
}

// normalizeValue converts driver-returned values that json.Marshal would
// otherwise mangle into the JSON-friendly form spec.md §3's row arrays
// expect: go-sql-driver/mysql and lib/pq both return string/datetime
// columns as []byte, which json.Marshal base64-encodes rather than
// rendering as text, and time.Time needs an explicit ISO-8601 string so
// Stage's §4.4.3 coercion sees the same textual format regardless of
// source dialect.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")
	default:
		return v
	}
}

func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := matchGlob(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}

// matchGlob implements the small subset of glob syntax spec.md §3
// requires for ignore_columns: literal text plus a trailing or leading
// "*" wildcard. It avoids pulling in path/filepath's OS-specific
// separator handling, which doesn't apply to column-name matching.
func matchGlob(pattern, name string) (bool, error) {
	switch {
	case pattern == "*":
		return true, nil
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1:
		return strings.Contains(name, pattern[1:len(pattern)-1]), nil
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, pattern[1:]), nil
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1]), nil
	default:
		return pattern == name, nil
	}
}
