package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// twoBlobPlane builds a probability plane with two well-separated square
// blobs near 1.0 on a background near 0.0.
func twoBlobPlane() [][]float32 {
	const size = 32
	plane := make([][]float32, size)
	for y := range plane {
		plane[y] = make([]float32, size)
		for x := range plane[y] {
			plane[y][x] = 0.05
		}
	}
	blob := func(y0, x0 int) {
		for y := y0; y < y0+6; y++ {
			for x := x0; x < x0+6; x++ {
				plane[y][x] = 0.95
			}
		}
	}
	blob(4, 4)
	blob(20, 20)
	return plane
}

func TestLabel_TwoBlobs(t *testing.T) {
	labeler := NewProbabilityLabeler()

	result, err := labeler.Label(twoBlobPlane())
	require.NoError(t, err)
	require.Equal(t, 2, result.NumComponents)

	distinct := map[int32]bool{}
	for _, row := range result.Labels {
		for _, label := range row {
			if label != 0 {
				distinct[label] = true
			}
		}
	}
	require.Len(t, distinct, 2)

	// Background stays label 0 away from the blobs
	require.Equal(t, int32(0), result.Labels[0][0])
}

func TestLabel_Deterministic(t *testing.T) {
	labeler := NewProbabilityLabeler()
	plane := twoBlobPlane()

	first, err := labeler.Label(plane)
	require.NoError(t, err)
	second, err := labeler.Label(plane)
	require.NoError(t, err)

	require.Equal(t, first.Threshold, second.Threshold)
	require.Equal(t, first.Labels, second.Labels)
}

func TestLabel_FixedThreshold(t *testing.T) {
	labeler := NewProbabilityLabelerWithOptions(DefaultOptions().WithFixedThreshold(0.5))

	result, err := labeler.Label(twoBlobPlane())
	require.NoError(t, err)
	require.Equal(t, 2, result.NumComponents)
	require.InDelta(t, 0.5, float64(result.Threshold), 0.01)
}

func TestLabel_InvalidConnectivity(t *testing.T) {
	labeler := NewProbabilityLabelerWithOptions(DefaultOptions().WithConnectivity(6))

	_, err := labeler.Label(twoBlobPlane())
	require.Error(t, err)
}

func TestLabel_RaggedPlane(t *testing.T) {
	labeler := NewProbabilityLabeler()

	_, err := labeler.Label([][]float32{{0.1, 0.2}, {0.3}})
	require.Error(t, err)
}

func TestLabel_EmptyPlane(t *testing.T) {
	labeler := NewProbabilityLabeler()

	_, err := labeler.Label(nil)
	require.Error(t, err)
}
