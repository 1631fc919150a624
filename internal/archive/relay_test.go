package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBundleKeyExtractsNamespaceAndJobID(t *testing.T) {
	ns, jobID, err := parseBundleKey("sales_us_orders/sales_us_orders#000000007.zip")
	require.NoError(t, err)
	require.Equal(t, "sales_us_orders", ns)
	require.Equal(t, int64(7), jobID)
}

func TestParseBundleKeyRejectsMalformedKeys(t *testing.T) {
	_, _, err := parseBundleKey("sales_us_orders/capture_state.zip")
	require.Error(t, err)

	_, _, err = parseBundleKey("no-hash-here.zip")
	require.Error(t, err)
}

func TestStateObjectNameIsCaptureStateZip(t *testing.T) {
	require.Equal(t, "capture_state.zip", StateObjectName)
}
