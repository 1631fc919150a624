package warehouse

import (
	"fmt"
	"strings"

	"github.com/nymics/udpcdc/internal/util/ident"
)

// CreateSchema renders "create schema if not exists <namespace>", per
// spec.md §4.4.2 / §6 ("One schema per namespace; identifier-quoted.").
func CreateSchema(namespace string) string {
	return fmt.Sprintf("create schema if not exists %s;", ident.Quote(namespace))
}

// DropTable renders "drop table if exists <schema>.<table>".
func DropTable(schema, table string) string {
	t := ident.NewTable(schema, table)
	return fmt.Sprintf("drop table if exists %s;", t.String())
}

// CreateTable renders a CREATE TABLE statement from the translated
// column list, per spec.md §4.4.2 step 3.
func CreateTable(schema, table string, cols []TargetColumn) string {
	t := ident.NewTable(schema, table)
	lines := make([]string, len(cols))
	for i, c := range cols {
		null := "not null"
		if c.Nullable {
			null = "null"
		}
		lines[i] = fmt.Sprintf("  %s %s %s", ident.Quote(c.Name), c.TargetType, null)
	}
	return fmt.Sprintf("create table %s (\n%s\n);", t.String(), strings.Join(lines, ",\n"))
}

// CreateTempTable renders a session-scoped temp table mirroring the
// target's translated schema, per spec.md §4.4.2's CDC-merge path: "create
// a session-scoped temp table mirroring the target's translated schema".
func CreateTempTable(tempName string, cols []TargetColumn) string {
	lines := make([]string, len(cols))
	for i, c := range cols {
		null := "not null"
		if c.Nullable {
			null = "null"
		}
		lines[i] = fmt.Sprintf("  %s %s %s", ident.Quote(c.Name), c.TargetType, null)
	}
	return fmt.Sprintf("create temporary table %s (\n%s\n);", ident.Quote(tempName), strings.Join(lines, ",\n"))
}

// DropTempTable renders "drop table <tempName>".
func DropTempTable(tempName string) string {
	return fmt.Sprintf("drop table %s;", ident.Quote(tempName))
}

// MergeStatement renders the single MERGE-from-temp-into-target
// statement described in spec.md §4.4.4: matched rows update every
// non-pk column, unmatched-by-target rows insert, unmatched-by-source
// rows are left untouched (no delete propagation).
func MergeStatement(schema, table, tempName string, cols []TargetColumn, pk []string) string {
	target := ident.NewTable(schema, table)
	pkSet := make(map[string]bool, len(pk))
	for _, k := range pk {
		pkSet[strings.ToLower(k)] = true
	}

	onClauses := make([]string, len(pk))
	for i, k := range pk {
		q := ident.Quote(k)
		onClauses[i] = fmt.Sprintf("s.%s = t.%s", q, q)
	}

	var updates []string
	var insertCols []string
	var insertVals []string
	for _, c := range cols {
		q := ident.Quote(c.Name)
		insertCols = append(insertCols, q)
		insertVals = append(insertVals, "s."+q)
		if !pkSet[strings.ToLower(c.Name)] {
			updates = append(updates, fmt.Sprintf("t.%s = s.%s", q, q))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "merge %s as t\nusing %s as s\non %s\n", target.String(), ident.Quote(tempName), strings.Join(onClauses, " and "))
	fmt.Fprintf(&b, "when matched then\n  update set %s\n", strings.Join(updates, ", "))
	fmt.Fprintf(&b, "when not matched by target then\n  insert (%s)\n  values (%s)\n", strings.Join(insertCols, ", "), strings.Join(insertVals, ", "))
	b.WriteString(";")
	return b.String()
}
