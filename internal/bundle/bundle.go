// Package bundle assembles and reads the zip artifacts described in
// spec.md §3/§8: one zip per capture job, containing per-table
// T.table/T.schema/T.pk side files, ordered T#NNNN.json batch files,
// and job.log/last_job.log stats files.
//
// The zip container format itself is produced with the standard
// library's archive/zip — there is no ecosystem replacement for the
// container format — but the deflate implementation is registered to
// github.com/klauspost/compress/flate, which the wider Go ecosystem
// reaches for over compress/flate for meaningfully faster compression
// at the same ratio.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

func init() {
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// Column describes one discovered or configured column, per spec.md §3
// "T.schema — discovered column metadata".
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Length      int    `json:"length,omitempty"`
	Precision   int    `json:"precision,omitempty"`
	Nullable    bool   `json:"nullable"`
}

// TableManifest is the per-table metadata persisted as T.table inside a
// bundle: a trimmed, serializable projection of config.TableSpec.
type TableManifest struct {
	SchemaName string   `json:"schema_name"`
	TableName  string   `json:"table_name"`
	CDC        string   `json:"cdc"`
	DropTable  bool     `json:"drop_table"`
	PrimaryKey []string `json:"primary_key"`
}

// Writer writes per-table entries into a zip stream as each is added;
// it keeps no copy of an entry once written. Memory use depends on the
// underlying io.Writer, which for both callers is a bytes.Buffer.
type Writer struct {
	zw *zip.Writer
}

// NewWriter wraps an io.Writer (such as a bytes.Buffer) as a bundle
// Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteTableManifest writes the "<table>.table" side file.
func (w *Writer) WriteTableManifest(tableName string, m TableManifest) error {
	return w.writeJSON(tableName+".table", m)
}

// WriteTableSchema writes the "<table>.schema" side file.
func (w *Writer) WriteTableSchema(tableName string, cols []Column) error {
	return w.writeJSON(tableName+".schema", cols)
}

// WriteTablePK writes the "<table>.pk" side file.
func (w *Writer) WriteTablePK(tableName string, pk []string) error {
	return w.writeJSON(tableName+".pk", pk)
}

// BatchName renders "<table>#<batch:0004d>.json" per spec.md §3.
func BatchName(tableName string, batch int) string {
	return fmt.Sprintf("%s#%04d.json", tableName, batch)
}

// CreateBatch returns a writer for one batch file's contents: the
// caller is expected to write a JSON array of row arrays.
func (w *Writer) CreateBatch(tableName string, batch int) (io.Writer, error) {
	return w.zw.Create(BatchName(tableName, batch))
}

// WriteJobLog writes the job.log stats file.
func (w *Writer) WriteJobLog(stats []StatRow) error {
	return w.writeJSON("job.log", stats)
}

// WriteLastJobLog copies the previous job's final stats file into this
// bundle under last_job.log, per spec.md §4.2.4: "Copy the previous
// job's final stats file into the work dir so downstream consumers have
// authoritative metrics for prior capture/compress/upload steps."
func (w *Writer) WriteLastJobLog(stats []StatRow) error {
	return w.writeJSON("last_job.log", stats)
}

// WriteRaw writes pre-encoded bytes under name, used for carrying the
// watermark store's exported JobHistory JSON into capture_state.zip.
func (w *Writer) WriteRaw(name string, data []byte) error {
	f, err := w.zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating bundle entry %s", name)
	}
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "writing bundle entry %s", name)
	}
	return nil
}

func (w *Writer) writeJSON(name string, v any) error {
	f, err := w.zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating bundle entry %s", name)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "encoding bundle entry %s", name)
	}
	return nil
}

// Close finalizes the zip central directory.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// StatRow is one row of job.log/last_job.log, matching spec.md §3's
// "stat_log" schema: a per-step metric keyed by stat_name.
type StatRow struct {
	StatName  string  `json:"stat_name"`
	TableName string  `json:"table_name,omitempty"`
	RowCount  int64   `json:"row_count,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
}

// Reader exposes read access to an already-assembled bundle.
type Reader struct {
	zr *zip.Reader
}

// OpenReader wraps an opened zip.Reader as a bundle Reader.
func OpenReader(zr *zip.Reader) *Reader {
	return &Reader{zr: zr}
}

// Tables returns the distinct table names present in the bundle,
// inferred from the ".table" side files, sorted for determinism.
func (r *Reader) Tables() []string {
	seen := map[string]bool{}
	for _, f := range r.zr.File {
		if strings.HasSuffix(f.Name, ".table") {
			seen[strings.TrimSuffix(f.Name, ".table")] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ReadTableManifest reads "<table>.table". A missing file (a malformed
// bundle per spec.md §7) is reported via ok=false so the caller can
// skip the table and continue the bundle.
func (r *Reader) ReadTableManifest(tableName string) (m TableManifest, ok bool, err error) {
	ok, err = r.readJSON(tableName+".table", &m)
	return
}

// ReadTableSchema reads "<table>.schema".
func (r *Reader) ReadTableSchema(tableName string) (cols []Column, ok bool, err error) {
	ok, err = r.readJSON(tableName+".schema", &cols)
	return
}

// ReadTablePK reads "<table>.pk".
func (r *Reader) ReadTablePK(tableName string) (pk []string, ok bool, err error) {
	ok, err = r.readJSON(tableName+".pk", &pk)
	return
}

// BatchFiles returns the sorted list of "<table>#NNNN.json" entry names
// for a table.
func (r *Reader) BatchFiles(tableName string) []string {
	prefix := tableName + "#"
	var out []string
	for _, f := range r.zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".json") {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

// OpenEntry opens a named entry for streaming reads, e.g. a batch file
// too large to buffer whole.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	for _, f := range r.zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, errors.Errorf("bundle entry %s not found", name)
}

// ReadJobLog reads job.log.
func (r *Reader) ReadJobLog() ([]StatRow, bool, error) {
	var rows []StatRow
	ok, err := r.readJSON("job.log", &rows)
	return rows, ok, err
}

// ReadLastJobLog reads last_job.log, which is optional.
func (r *Reader) ReadLastJobLog() ([]StatRow, bool, error) {
	var rows []StatRow
	ok, err := r.readJSON("last_job.log", &rows)
	return rows, ok, err
}

func (r *Reader) readJSON(name string, dest any) (bool, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return false, nil
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(dest); err != nil {
		return true, errors.Wrapf(err, "decoding bundle entry %s", name)
	}
	return true, nil
}

