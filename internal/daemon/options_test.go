package daemon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionsBareKeyMeansTrue(t *testing.T) {
	o := ParseOptions("onetime,nowait=0,logLevel=debug")
	require.True(t, o.Bool("onetime"))
	require.False(t, o.Bool("nowait"))
	require.Equal(t, "debug", o.Get("loglevel"))
}

func TestParseOptionsEmptyStringYieldsNoOptions(t *testing.T) {
	o := ParseOptions("")
	require.False(t, o.Bool("onetime"))
	require.Empty(t, o.Get("anything"))
}

func TestSetOverridesParsedValue(t *testing.T) {
	o := ParseOptions("onetime=0")
	require.False(t, o.Bool("onetime"))
	o.Set("onetime", "1")
	require.True(t, o.Bool("onetime"))
}

func TestEnvVarNameLowercasesStem(t *testing.T) {
	require.Equal(t, "udp_capture_sales", EnvVarName("CAPTURE_SALES"))
}

func TestBoolAcceptsTrueCaseInsensitive(t *testing.T) {
	o := ParseOptions("flag=True")
	require.True(t, o.Bool("flag"))
}
