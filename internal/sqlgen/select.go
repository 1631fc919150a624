// Package sqlgen builds the CDC select statement described in
// spec.md §4.2.2. Rather than the string-templating approach of the
// Python original (dev/src/cdc_select.py), the statement is assembled
// as a small AST — a Select value built up field by field — and
// rendered once via String(). Identifiers are quoted by
// internal/util/ident; they are not checked against ident.Validate.
package sqlgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/nymics/udpcdc/internal/config"
	"github.com/nymics/udpcdc/internal/util/ident"
)

// Select is the structured representation of one CDC extraction query.
type Select struct {
	Schema      string
	Table       string
	Columns     []string // "*" sentinel or explicit column names
	JobID       int64
	Timestamp   TimestampExpr
	Join        string // already-normalized join clause text, or ""
	Where       string // user-supplied predicate, unquoted/unvalidated
	Order       []string
}

// TimestampExpr captures how "udp_timestamp" is computed: either a
// literal window-end value (no CDC timestamp column configured) or an
// expression over one or more source columns.
type TimestampExpr struct {
	// Literal holds the window-end value when no timestamp columns are
	// configured (cdc=none, or the table has no timestamp column).
	Literal time.Time
	// Columns holds the configured timestamp column(s); when more than
	// one is present, udp_timestamp resolves to a max() over a VALUES
	// list per spec.md §4.2.2.
	Columns []string
	hasCols bool
}

// NewTimestampExpr builds a TimestampExpr from a TableSpec's Timestamp
// field (a possibly comma-separated column list) and the literal window
// end to fall back to when no columns are configured.
func NewTimestampExpr(timestampField string, windowEnd time.Time) TimestampExpr {
	var cols []string
	for _, c := range strings.Split(timestampField, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return TimestampExpr{Literal: windowEnd, Columns: cols, hasCols: len(cols) > 0}
}

// HasColumns reports whether a CDC timestamp column is configured.
func (t TimestampExpr) HasColumns() bool { return t.hasCols }

// expr renders the SQL expression used both as the WHERE predicate
// operand and as the udp_timestamp projection.
func (t TimestampExpr) expr(alias string) string {
	if !t.hasCols {
		return fmt.Sprintf("'%s'", t.Literal.UTC().Format("2006-01-02 15:04:05"))
	}
	cols := ident.AddAliases(t.Columns, alias)
	if len(cols) == 1 {
		return cols[0].String()
	}
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = fmt.Sprintf("(%s)", c.String())
	}
	return fmt.Sprintf(`(select max("v") from (values %s) as value("v"))`, strings.Join(values, ", "))
}

// BuildSelect assembles a Select from a table's configuration, the
// current CDC window bounds, and the job id being extracted.
func BuildSelect(spec config.TableSpec, jobID int64, windowStart, windowEnd time.Time, columns []string) Select {
	timestampField := spec.Timestamp
	if spec.CDC == config.CDCNone {
		timestampField = ""
	}
	ts := NewTimestampExpr(timestampField, windowEnd)

	var order []string
	if spec.Order != "" {
		for _, c := range strings.Split(spec.Order, ",") {
			if c = strings.TrimSpace(c); c != "" {
				order = append(order, c)
			}
		}
	}

	return Select{
		Schema:    spec.SchemaName,
		Table:     spec.TableName,
		Columns:   columns,
		JobID:     jobID,
		Timestamp: ts,
		Join:      NormalizeJoin(spec.Join, spec.SchemaName),
		Where:     spec.Where,
		Order:     order,
	}
}

// windowPredicate renders the timestamp range predicate, or "" if no
// CDC timestamp column is configured (spec.md §4.2.2: "When cdc=none or
// no timestamp column is configured, the WHERE timestamp predicate is
// omitted").
func (s Select) windowPredicate(windowStart, windowEnd time.Time) string {
	if !s.Timestamp.HasColumns() {
		return ""
	}
	expr := s.Timestamp.expr("s")
	return fmt.Sprintf("(\n    %s >= '%s' and\n    %s < '%s'\n  )",
		expr, windowStart.UTC().Format("2006-01-02 15:04:05"),
		expr, windowEnd.UTC().Format("2006-01-02 15:04:05"))
}

// String renders the final SQL text, matching the structure of
// spec.md §4.2.2's template.
func (s Select) String(windowStart, windowEnd time.Time) string {
	var b strings.Builder

	b.WriteString("select\n  ")
	if len(s.Columns) == 1 && s.Columns[0] == "*" {
		b.WriteString("*")
	} else {
		cols := ident.AddAliases(s.Columns, "s")
		strs := make([]string, len(cols))
		for i, c := range cols {
			strs[i] = c.String()
		}
		b.WriteString(strings.Join(strs, ",\n  "))
	}
	fmt.Fprintf(&b, ",\n  %d as \"udp_job\",\n  %s as \"udp_timestamp\"\n", s.JobID, s.Timestamp.expr("s"))
	fmt.Fprintf(&b, "from %s.%s as \"s\"\n", ident.Quote(s.Schema), ident.Quote(s.Table))

	if s.Join != "" {
		b.WriteString(s.Join)
		b.WriteString("\n")
	}

	windowPred := s.windowPredicate(windowStart, windowEnd)
	switch {
	case s.Where != "" && windowPred != "":
		fmt.Fprintf(&b, "where\n  (%s) and\n  %s\n", s.Where, windowPred)
	case s.Where != "":
		fmt.Fprintf(&b, "where\n  (%s)\n", s.Where)
	case windowPred != "":
		fmt.Fprintf(&b, "where\n  %s\n", windowPred)
	}

	if len(s.Order) > 0 {
		cols := ident.AddAliases(s.Order, "s")
		strs := make([]string, len(cols))
		for i, c := range cols {
			strs[i] = c.String()
		}
		fmt.Fprintf(&b, "order by %s\n", strings.Join(strs, ", "))
	}

	return strings.TrimRight(b.String(), "\n") + ";"
}
