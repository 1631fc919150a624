package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildBundle(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteTableManifest("customer", TableManifest{
		SchemaName: "dbo", TableName: "customer", CDC: "timestamp", PrimaryKey: []string{"id"},
	}))
	require.NoError(t, w.WriteTableSchema("customer", []Column{{Name: "id", Type: "int"}}))
	require.NoError(t, w.WriteTablePK("customer", []string{"id"}))

	bw, err := w.CreateBatch("customer", 1)
	require.NoError(t, err)
	_, err = bw.Write([]byte(`[[1,"a"],[2,"b"]]`))
	require.NoError(t, err)

	require.NoError(t, w.WriteJobLog([]StatRow{{StatName: "capture", TableName: "customer", RowCount: 2}}))
	require.NoError(t, w.WriteRaw("jobhistory.json", []byte(`{"job_id":1}`)))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestWriterReaderRoundTrip(t *testing.T) {
	raw := buildBundle(t)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	r := OpenReader(zr)

	require.Equal(t, []string{"customer"}, r.Tables())

	manifest, ok, err := r.ReadTableManifest("customer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "timestamp", manifest.CDC)

	cols, ok, err := r.ReadTableSchema("customer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "id", cols[0].Name)

	pk, ok, err := r.ReadTablePK("customer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"id"}, pk)

	batches := r.BatchFiles("customer")
	require.Equal(t, []string{"customer#0001.json"}, batches)

	rc, err := r.OpenEntry(batches[0])
	require.NoError(t, err)
	raw2, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	require.JSONEq(t, `[[1,"a"],[2,"b"]]`, string(raw2))

	rows, ok, err := r.ReadJobLog()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "capture", rows[0].StatName)

	_, ok, err = r.ReadLastJobLog()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadTableManifestMissingReportsNotOK(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	r := OpenReader(zr)

	_, ok, err := r.ReadTableManifest("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBatchNameZeroPads(t *testing.T) {
	require.Equal(t, "orders#0042.json", BatchName("orders", 42))
}
