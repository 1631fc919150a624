package warehouse

import (
	"testing"

	"github.com/nymics/udpcdc/internal/bundle"
	"github.com/stretchr/testify/require"
)

func TestTranslateTypeKnownMappings(t *testing.T) {
	require.Equal(t, "nvarchar(max)", TranslateType("jsonb"))
	require.Equal(t, "nvarchar(max)", TranslateType("TEXT"))
	require.Equal(t, "datetime2(7)", TranslateType("timestamp without time zone"))
	require.Equal(t, "tinyint", TranslateType("boolean"))
	require.Equal(t, "nvarchar(36)", TranslateType("uuid"))
}

func TestTranslateTypePassesThroughUnknown(t *testing.T) {
	require.Equal(t, "money", TranslateType("money"))
	require.Equal(t, "numeric(18,2)", TranslateType("numeric(18,2)"))
}

func TestTranslateSchemaAppendsExtendedColumns(t *testing.T) {
	cols := []bundle.Column{{Name: "id", Type: "integer"}, {Name: "name", Type: "character varying"}}
	out := TranslateSchema(cols)
	require.Len(t, out, 4)
	require.Equal(t, "udp_jobid", out[2].Name)
	require.Equal(t, "udp_timestamp", out[3].Name)
}

func TestCoerceValueTruncatesDateTimeStrings(t *testing.T) {
	v := CoerceValue("datetime2(7)", "2024-01-02T12:00:30.123456789Z")
	require.Equal(t, "2024-01-02T12:00:30.123", v)
}

func TestCoerceValueTruncatesUDPTimestampColumn(t *testing.T) {
	v := CoerceValue("datetime2", "2024-01-02T12:00:30.123456789Z")
	require.Equal(t, "2024-01-02T12:00:30.123", v)
}

func TestCoerceValueForcesWideTextToString(t *testing.T) {
	require.Equal(t, "42", CoerceValue("nvarchar(max)", float64(42)))
	require.Equal(t, "true", CoerceValue("nvarchar(128)", true))
}

func TestCoerceValuePassesThroughOtherTypes(t *testing.T) {
	require.Equal(t, int(7), CoerceValue("int", 7))
}
