package sqlgen

import (
	"strings"
	"testing"
	"time"

	"github.com/nymics/udpcdc/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildSelectTimestampWindow(t *testing.T) {
	spec := config.TableSpec{
		SchemaName: "sales",
		TableName:  "customer",
		CDC:        config.CDCTimestamp,
		Timestamp:  "updated_at",
		Order:      "id",
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 12, 0, 30, 0, time.UTC)

	sel := BuildSelect(spec, 7, start, end, []string{"id", "name", "updated_at"})
	sql := sel.String(start, end)

	require.Contains(t, sql, `"s"."id"`)
	require.Contains(t, sql, `7 as "udp_job"`)
	require.Contains(t, sql, `"s"."updated_at" as "udp_timestamp"`)
	require.Contains(t, sql, `from "sales"."customer" as "s"`)
	require.Contains(t, sql, `"s"."updated_at" >= '2024-01-01 00:00:00'`)
	require.Contains(t, sql, `"s"."updated_at" < '2024-01-02 12:00:30'`)
	require.Contains(t, sql, "order by")
	require.True(t, strings.HasSuffix(sql, ";"))
}

func TestBuildSelectNoCDCUsesLiteralWindowEnd(t *testing.T) {
	spec := config.TableSpec{SchemaName: "ref", TableName: "lookup", CDC: config.CDCNone}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	sel := BuildSelect(spec, 1, start, end, []string{"*"})
	sql := sel.String(start, end)

	require.NotContains(t, sql, "where")
	require.Contains(t, sql, `'2024-01-02 00:00:00' as "udp_timestamp"`)
}

func TestBuildSelectMultiColumnTimestamp(t *testing.T) {
	spec := config.TableSpec{
		SchemaName: "s1", TableName: "t1",
		CDC:       config.CDCTimestamp,
		Timestamp: "created_at, updated_at",
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	sel := BuildSelect(spec, 1, start, end, []string{"*"})
	sql := sel.String(start, end)
	require.Contains(t, sql, `select max("v") from (values ("s"."created_at"), ("s"."updated_at")) as value("v")`)
}

func TestNormalizeJoinStripsNoLockAndQualifies(t *testing.T) {
	join := `left join CloseHeader t1 with (NOLOCK) on s.CloseID = t1.CloseID`
	out := NormalizeJoin(join, "dbo")
	require.Contains(t, out, `"dbo"."closeheader"`)
	require.Contains(t, out, `"t1"."closeid"`)
	require.NotContains(t, out, "nolock")
	require.NotContains(t, out, "with")
}

func TestNormalizeJoinRewritesDatabaseDotDotTable(t *testing.T) {
	join := `inner join RTPOne..ProductProfileType ppt on p.ProductProfileTypeCode = ppt.ProductProfileTypeCode`
	out := NormalizeJoin(join, "dbo")
	require.Contains(t, out, `"productprofiletype"`)
	require.NotContains(t, out, "rtpone")
}

func TestWindowPredicateOmittedForNonTimestampCDC(t *testing.T) {
	spec := config.TableSpec{SchemaName: "s", TableName: "t", CDC: config.CDCRowversion}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	sel := BuildSelect(spec, 1, start, end, []string{"*"})
	require.False(t, sel.Timestamp.HasColumns())
	require.NotContains(t, sel.String(start, end), "where")
}
