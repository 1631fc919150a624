package stage

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// decodeBatch parses one T#NNNN.json batch file: a JSON array of row
// arrays, per spec.md §3.
func decodeBatch(r io.Reader) ([][]any, error) {
	var rows [][]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "decoding batch file")
	}
	return rows, nil
}
