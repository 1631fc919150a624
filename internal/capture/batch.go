package capture

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/nymics/udpcdc/internal/sourcedb"
)

// batchSink streams rows from a cursor into successive T#NNNN.json
// batch files of at most batchSize rows, per spec.md §4.2.3 step 4. It
// also accumulates a running hash over every row's encoded bytes, used
// by fingerprint suppression (spec.md §4.2.3 step 5).
//
// Fingerprint suppression requires the option to discard a table's
// already-produced batch output without it ever reaching the bundle
// zip; since a zip.Writer entry can't be un-written once created, this
// sink always buffers in memory and only streams into the bundle
// Writer once the caller calls Commit. This matches spec.md §9's note
// that fingerprint suppression is limited to small reference/lookup
// tables (cdc=none with an explicit sort order).
type batchSink struct {
	tableName string
	batchSize int

	buffers  []*bytes.Buffer
	cur      *bytes.Buffer
	curCount int
	rowCount int64
	digest   hash.Hash
}

func newBatchSink(tableName string, batchSize int) *batchSink {
	if batchSize <= 0 {
		batchSize = 1_000_000
	}
	return &batchSink{tableName: tableName, batchSize: batchSize, digest: sha256.New()}
}

func (b *batchSink) writeRow(row []any) error {
	if b.cur == nil || b.curCount >= b.batchSize {
		b.rollBatch()
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "encoding capture row")
	}

	prefix := ",\n  "
	if b.curCount == 0 {
		prefix = "\n  "
	}
	b.cur.WriteString(prefix)
	b.cur.Write(raw)
	b.digest.Write(raw)

	b.curCount++
	b.rowCount++
	return nil
}

func (b *batchSink) rollBatch() {
	b.closeBatch()
	b.cur = &bytes.Buffer{}
	b.cur.WriteString("[")
	b.curCount = 0
	b.buffers = append(b.buffers, b.cur)
}

func (b *batchSink) closeBatch() {
	if b.cur == nil {
		return
	}
	b.cur.WriteString("\n]")
}

// Finish closes the current batch buffer and returns the total row
// count and hex-encoded content fingerprint.
func (b *batchSink) Finish() (rowCount int64, fingerprint string) {
	b.closeBatch()
	return b.rowCount, hex.EncodeToString(b.digest.Sum(nil))
}

// Commit streams every buffered batch into w under this table's batch
// file names, used when the table's output is not suppressed.
func (b *batchSink) Commit(w *bundle.Writer) error {
	for i, buf := range b.buffers {
		dst, err := w.CreateBatch(b.tableName, i+1)
		if err != nil {
			return errors.Wrapf(err, "creating batch file for %s", b.tableName)
		}
		if _, err := io.Copy(dst, bytes.NewReader(buf.Bytes())); err != nil {
			return errors.Wrapf(err, "writing batch file for %s", b.tableName)
		}
	}
	return nil
}

// streamTable drains rows into sink, returning once the cursor is
// exhausted.
func streamTable(rows *sqlx.Rows, sink *batchSink) error {
	for rows.Next() {
		values, err := sourcedb.RowValues(rows)
		if err != nil {
			return err
		}
		if err := sink.writeRow(values); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterating capture rows")
}
