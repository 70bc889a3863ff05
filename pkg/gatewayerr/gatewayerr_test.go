package gatewayerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs_UnwrapsChain(t *testing.T) {
	base := CircuitOpen("aruba-central")
	wrapped := fmt.Errorf("calling get_device_list: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindCircuitOpen, got.Kind)
}

func TestAs_NoMatch(t *testing.T) {
	_, ok := As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindConfig:         "config",
		KindAuth:           "auth",
		KindCircuitOpen:    "circuit_open",
		KindUpstreamClient: "upstream_client",
		KindUpstreamServer: "upstream_server",
		KindTimeout:        "timeout",
		KindSchema:         "schema",
		KindCancelled:      "cancelled",
		KindOther:          "other",
	}

	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestSchema_CarriesField(t *testing.T) {
	err := Schema("serial_number", "must be uppercase alphanumeric")
	assert.Equal(t, "serial_number", err.Field)
	assert.Equal(t, KindSchema, err.Kind)
}
