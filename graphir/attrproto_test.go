package graphir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itohio/lstmfuse/graphir"
)

// TestAttrsProtoRoundTripsFusedNodeAttrs exercises the attribute bag a
// fused LSTM node actually carries (direction, hidden_size) round-tripping
// through structpb, the way a downstream serializer would read them back.
func TestAttrsProtoRoundTripsFusedNodeAttrs(t *testing.T) {
	attrs := map[string]any{
		"direction":   "forward",
		"hidden_size": 8.0, // structpb only knows float64 numbers
	}

	s, err := graphir.AttrsToProto(attrs)
	require.NoError(t, err)

	got := graphir.AttrsFromProto(s)
	require.Equal(t, attrs["direction"], got["direction"])
	require.Equal(t, attrs["hidden_size"], got["hidden_size"])
}

func TestAttrsToProtoExcludesTensorValueAttr(t *testing.T) {
	val := graphir.NewFloat32Tensor([]int{1}, []float32{1})
	attrs := map[string]any{
		graphir.TensorValueAttr: val,
		"note":                  "kept",
	}

	s, err := graphir.AttrsToProto(attrs)
	require.NoError(t, err)
	require.NotContains(t, s.Fields, graphir.TensorValueAttr)
	require.Contains(t, s.Fields, "note")
}

func TestAttrsFromProtoNilStructReturnsNil(t *testing.T) {
	require.Nil(t, graphir.AttrsFromProto(nil))
}
