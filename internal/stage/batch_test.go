package stage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBatchParsesRowArrays(t *testing.T) {
	raw := `[
  [1, "a", "2024-01-01T00:00:00"],
  [2, "b", "2024-01-02T00:00:00"]
]`
	rows, err := decodeBatch(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, float64(1), rows[0][0])
	require.Equal(t, "a", rows[0][1])
}

func TestDecodeBatchRejectsMalformedJSON(t *testing.T) {
	_, err := decodeBatch(strings.NewReader("not json"))
	require.Error(t, err)
}
