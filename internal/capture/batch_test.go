package capture

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/stretchr/testify/require"
)

func TestBatchSinkRollsOverAtBatchSize(t *testing.T) {
	sink := newBatchSink("customer", 2)
	require.NoError(t, sink.writeRow([]any{1, "a"}))
	require.NoError(t, sink.writeRow([]any{2, "b"}))
	require.NoError(t, sink.writeRow([]any{3, "c"}))

	rowCount, fp1 := sink.Finish()
	require.Equal(t, int64(3), rowCount)
	require.NotEmpty(t, fp1)
	require.Len(t, sink.buffers, 2)
}

func TestBatchSinkFingerprintDeterministic(t *testing.T) {
	a := newBatchSink("lookup", 10)
	require.NoError(t, a.writeRow([]any{1, "x"}))
	_, fpA := a.Finish()

	b := newBatchSink("lookup", 10)
	require.NoError(t, b.writeRow([]any{1, "x"}))
	_, fpB := b.Finish()

	require.Equal(t, fpA, fpB)
}

func TestBatchSinkCommitWritesValidJSONBatches(t *testing.T) {
	sink := newBatchSink("customer", 10)
	require.NoError(t, sink.writeRow([]any{1.0, "a"}))
	require.NoError(t, sink.writeRow([]any{2.0, "b"}))
	sink.Finish()

	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	require.NoError(t, sink.Commit(w))
	require.NoError(t, w.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	require.Equal(t, "customer#0001.json", zr.File[0].Name)
}
