package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeIni(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLayersOverridesLaterFilesWinKeyByKey(t *testing.T) {
	dir := t.TempDir()
	base := writeIni(t, dir, "init.ini", "[database:src]\ndriver = mysql\nmax_conns = 5\n")
	override := writeIni(t, dir, "connect.ini", "[database:src]\nmax_conns = 20\n")

	l := New()
	require.NoError(t, l.Load(base))
	require.NoError(t, l.Load(override))

	sec, ok := l.Section("database", "src")
	require.True(t, ok)
	require.Equal(t, "mysql", sec.Get("driver"))
	require.Equal(t, "20", sec.Get("max_conns"))
}

func TestTemplateExpansionAgainstEarlierFile(t *testing.T) {
	dir := t.TempDir()
	base := writeIni(t, dir, "bootstrap.ini", "[cloud:common]\nroot = /data/udp\n")
	proj := writeIni(t, dir, "demo.project", "[project:demo]\nworkdir = {%root%}/demo\n")

	l := New()
	require.NoError(t, l.Load(base))
	require.NoError(t, l.Load(proj))

	sec, ok := l.Section("project", "demo")
	require.True(t, ok)
	require.Equal(t, "/data/udp/demo", sec.Get("workdir"))
}

func TestSectionsOfKindPreservesLoadOrder(t *testing.T) {
	dir := t.TempDir()
	tables := writeIni(t, dir, "demo.tables", "[table:customer]\ncdc = timestamp\n\n[table:orders]\ncdc = none\n")

	l := New()
	require.NoError(t, l.Load(tables))

	secs := l.SectionsOfKind("table")
	require.Len(t, secs, 2)
	require.Equal(t, "customer", secs[0].Name)
	require.Equal(t, "orders", secs[1].Name)
}

func TestDecodeTableDefaultsAndLists(t *testing.T) {
	dir := t.TempDir()
	tables := writeIni(t, dir, "demo.tables",
		"[table:customer]\nprimary_key = id, region\nignore_columns = tmp_*, *_scratch\n")

	l := New()
	require.NoError(t, l.Load(tables))

	sec, ok := l.Section("table", "customer")
	require.True(t, ok)
	spec := DecodeTable(sec)
	require.Equal(t, "customer", spec.SchemaName)
	require.Equal(t, CDCNone, spec.CDC)
	require.Equal(t, []string{"id", "region"}, spec.PrimaryKey)
	require.Equal(t, []string{"tmp_*", "*_scratch"}, spec.IgnoreColumns)
}

func TestMustGetReportsMissingKey(t *testing.T) {
	sec := &Section{Kind: "database", Name: "src", Keys: map[string]string{}}
	_, err := sec.MustGet("dsn")
	require.Error(t, err)
}

func TestDatapoolNamespaceJoinsNonEmptyParts(t *testing.T) {
	d := DatapoolSpec{Entity: "acme", Location: "", System: "erp", Instance: "p1", Subject: "orders"}
	require.Equal(t, "acme_erp_p1_orders", d.Namespace())
}
