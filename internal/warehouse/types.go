// Package warehouse materializes per-namespace schemas in the target
// warehouse and applies captured bundles, per spec.md §4.4. The target
// driver is github.com/jackc/pgx/v5, used through pgxpool for the
// connection pool, following the teacher's sink.go,
// which speaks to a Postgres-compatible warehouse through the same
// driver family.
package warehouse

import (
	"strconv"
	"strings"

	"github.com/nymics/udpcdc/internal/bundle"
)

// typeTranslations is the canonical source-type → target-type mapping
// from spec.md §4.4.3, keyed by lower-cased source type name.
var typeTranslations = map[string]string{
	"array":                       "nvarchar(512)",
	"bigint":                      "bigint",
	"boolean":                     "tinyint",
	"character varying":           "nvarchar(768)",
	"date":                        "date",
	"integer":                     "int",
	"jsonb":                       "nvarchar(max)",
	"text":                        "nvarchar(max)",
	"timestamp without time zone": "datetime2(7)",
	"user defined":                "nvarchar(128)",
	"user-defined":                "nvarchar(128)",
	"uuid":                        "nvarchar(36)",
}

// wideTextTypes are target types that row-level coercion forces to
// string, per spec.md §4.4.3's "any column whose target type is a
// wide-text is forced to string".
var wideTextTypes = map[string]bool{
	"nvarchar(max)":  true,
	"nvarchar(768)":  true,
	"nvarchar(512)":  true,
	"nvarchar(128)":  true,
	"nvarchar(36)":   true,
}

// dateTimeTypes are target types whose row values arrive as ISO-8601
// strings that must be truncated to 23 characters before insert, per
// spec.md §4.4.3.
var dateTimeTypes = map[string]bool{
	"date":         true,
	"datetime2(7)": true,
	"datetime2":    true,
}

// TranslateType maps a source column type name to its target-warehouse
// type. Unrecognized types pass through unchanged, per spec.md §4.4.3
// ("other: pass through, native-compatible numeric/money types").
func TranslateType(sourceType string) string {
	if target, ok := typeTranslations[strings.ToLower(sourceType)]; ok {
		return target
	}
	return sourceType
}

// TargetColumn is one column of a translated target table.
type TargetColumn struct {
	Name       string
	SourceType string
	TargetType string
	Nullable   bool
}

// ExtendedColumns are the two trailing provenance columns every target
// table carries, per spec.md §6: "Every table has two trailing columns:
// udp_jobid int, udp_timestamp datetime2."
var ExtendedColumns = []TargetColumn{
	{Name: "udp_jobid", TargetType: "int", Nullable: false},
	{Name: "udp_timestamp", TargetType: "datetime2", Nullable: false},
}

// TranslateSchema converts a bundle's discovered source schema into the
// target column list, appending the two fixed extended columns.
func TranslateSchema(cols []bundle.Column) []TargetColumn {
	out := make([]TargetColumn, 0, len(cols)+len(ExtendedColumns))
	for _, c := range cols {
		out = append(out, TargetColumn{
			Name:       c.Name,
			SourceType: c.Type,
			TargetType: TranslateType(c.Type),
			Nullable:   c.Nullable,
		})
	}
	out = append(out, ExtendedColumns...)
	return out
}

// CoerceValue applies spec.md §4.4.3's row-level coercion rules to one
// scanned JSON value, given the column's translated target type.
func CoerceValue(targetType string, v any) any {
	s, isString := v.(string)

	switch {
	case dateTimeTypes[targetType] && isString:
		if len(s) > 23 {
			return s[:23]
		}
		return s
	case wideTextTypes[targetType] && !isString && v != nil:
		return toString(v)
	default:
		return v
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
