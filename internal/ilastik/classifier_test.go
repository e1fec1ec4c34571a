package ilastik

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"

	"go-cell-segmenter/internal/analyzer"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/imagestack"
)

// twoBlobPlane builds a probability plane with two separated blobs near 1.0
// on a background near 0.0.
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

// writeProbabilityExport writes an ilastik-shaped HDF5 export: dataset
// "exported_data" of shape (y, x, 2) with channel 0 = prob, channel 1 =
// 1 - prob.
func writeProbabilityExport(t *testing.T, path string, prob [][]float32) {
	t.Helper()

	height, width := len(prob), len(prob[0])
	raw := make([]float32, height*width*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * 2
			raw[base] = prob[y][x]
			raw[base+1] = 1 - prob[y][x]
		}
	}

	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	require.NoError(t, err)
	defer f.Close()

	space, err := hdf5.CreateSimpleDataspace([]uint{uint(height), uint(width), 2}, nil)
	require.NoError(t, err)
	defer space.Close()

	dset, err := f.CreateDataset(exportedDatasetKey, hdf5.T_NATIVE_FLOAT, space)
	require.NoError(t, err)
	defer dset.Close()

	require.NoError(t, dset.Write(&raw))
}

func writeStubExecutable(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run_ilastik.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func planeStack(t *testing.T, plane [][]float32) *imagestack.ImageStack {
	t.Helper()
	height, width := len(plane), len(plane[0])
	data := make([]float32, 0, height*width)
	for _, row := range plane {
		data = append(data, row...)
	}
	stack, err := imagestack.FromValues([imagestack.NumAxes]int{1, 1, 1, height, width}, data)
	require.NoError(t, err)
	return stack
}

func TestNewClassifier_MissingExecutable(t *testing.T) {
	_, err := NewClassifier("/nonexistent/run_ilastik.sh", "/data/classifier.ilp")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeEnvironment),
		"expected an environment error, got: %v", err)
}

func TestImportProbabilities_FiveAxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.h5")
	writeProbabilityExport(t, path, twoBlobPlane())

	stack, err := ImportProbabilities(path)
	require.NoError(t, err)

	shape := stack.Shape()
	require.Equal(t, 1, shape[imagestack.AxisRound])
	require.Equal(t, 1, shape[imagestack.AxisCh])
	require.Equal(t, 1, shape[imagestack.AxisZPlane])
	require.Equal(t, 32, shape[imagestack.AxisY])
	require.Equal(t, 32, shape[imagestack.AxisX])
}

func TestImportProbabilities_Deterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.h5")
	writeProbabilityExport(t, path, twoBlobPlane())

	first, err := ImportProbabilities(path)
	require.NoError(t, err)
	second, err := ImportProbabilities(path)
	require.NoError(t, err)

	require.Equal(t, first.Shape(), second.Shape())
	require.Equal(t, first.Data(), second.Data())
}

func TestImportResult_TwoBlobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.h5")
	writeProbabilityExport(t, path, twoBlobPlane())

	result, err := ImportResult(path, analyzer.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, result.Labeling.NumComponents)

	distinct := map[int32]bool{}
	for _, row := range result.Labeling.Labels {
		for _, label := range row {
			if label != 0 {
				distinct[label] = true
			}
		}
	}
	require.Len(t, distinct, 2)
}

func TestImportProbabilities_MissingFile(t *testing.T) {
	_, err := ImportProbabilities(filepath.Join(t.TempDir(), "never_written.h5"))
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessing),
		"expected a processing error, got: %v", err)
}

func TestRun_WritesSqueezedInput(t *testing.T) {
	// The stub stands in for ilastik: it copies the .npy input it was handed
	// to a capture path and exits without producing an export.
	capture := filepath.Join(t.TempDir(), "captured_input.npy")
	stub := writeStubExecutable(t, fmt.Sprintf("#!/bin/sh\n/bin/cp \"$6\" %q\n", capture))

	classifier, err := NewClassifier(stub, "/data/classifier.ilp")
	require.NoError(t, err)

	plane := twoBlobPlane()
	_, err = classifier.Run(context.Background(), planeStack(t, plane))
	// No export was produced, so the import step fails.
	require.Error(t, err)

	f, err := os.Open(capture)
	require.NoError(t, err)
	defer f.Close()

	got, err := imagestack.ReadNPY(f)
	require.NoError(t, err)
	gotPlane, err := got.SqueezeYX()
	require.NoError(t, err)
	require.Equal(t, plane, gotPlane)
}

func TestRun_ImportsClassifierOutput(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "fixture.h5")
	writeProbabilityExport(t, fixture, twoBlobPlane())

	// The stub copies a pre-built export to the --output_filename_format path.
	stub := writeStubExecutable(t, fmt.Sprintf("#!/bin/sh\n/bin/cp %q \"$5\"\n", fixture))

	classifier, err := NewClassifier(stub, "/data/classifier.ilp")
	require.NoError(t, err)

	result, err := classifier.Run(context.Background(), planeStack(t, twoBlobPlane()))
	require.NoError(t, err)
	require.Equal(t, 2, result.Labeling.NumComponents)

	shape := result.Stack.Shape()
	require.Equal(t, [imagestack.NumAxes]int{1, 1, 1, 32, 32}, shape)
}

func TestRun_RejectsMultiPlaneStack(t *testing.T) {
	stub := writeStubExecutable(t, "#!/bin/sh\n")
	classifier, err := NewClassifier(stub, "/data/classifier.ilp")
	require.NoError(t, err)

	data := make([]float32, 2*4*4)
	stack, err := imagestack.FromValues([imagestack.NumAxes]int{1, 1, 2, 4, 4}, data)
	require.NoError(t, err)

	_, err = classifier.Run(context.Background(), stack)
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation),
		"expected a validation error, got: %v", err)
}
