package warehouse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeStatementMatchedUpdatesNonPKColumns(t *testing.T) {
	cols := []TargetColumn{
		{Name: "id", TargetType: "int"},
		{Name: "name", TargetType: "nvarchar(768)"},
		{Name: "udp_jobid", TargetType: "int"},
		{Name: "udp_timestamp", TargetType: "datetime2"},
	}
	sql := MergeStatement("sales", "customer", "temp_customer", cols, []string{"id"})

	require.Contains(t, sql, `merge "sales"."customer" as t`)
	require.Contains(t, sql, `using "temp_customer" as s`)
	require.Contains(t, sql, `on s."id" = t."id"`)
	require.Contains(t, sql, `t."name" = s."name"`)
	require.Contains(t, sql, `t."udp_jobid" = s."udp_jobid"`)
	require.NotContains(t, sql, `t."id" = s."id"`)
	require.Contains(t, sql, "when not matched by target then")
}

func TestCreateTableRendersNullability(t *testing.T) {
	cols := []TargetColumn{
		{Name: "id", TargetType: "int", Nullable: false},
		{Name: "note", TargetType: "nvarchar(max)", Nullable: true},
	}
	sql := CreateTable("sales", "customer", cols)
	require.Contains(t, sql, `"id" int not null`)
	require.Contains(t, sql, `"note" nvarchar(max) null`)
}
