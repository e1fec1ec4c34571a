package ilastik

import (
	"fmt"

	"gonum.org/v1/hdf5"

	"go-cell-segmenter/internal/analyzer"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/imagestack"
)

// exportedDatasetKey is the dataset name ilastik writes its probability
// export under.
const exportedDatasetKey = "exported_data"

func importResult(path string, options analyzer.LabelingOptions) (*Result, error) {
	cellProbabilities, err := readExportedData(path)
	if err != nil {
		return nil, err
	}

	labeler := analyzer.NewProbabilityLabelerWithOptions(options)
	labeling, err := labeler.Label(cellProbabilities)
	if err != nil {
		return nil, err
	}

	stack, err := imagestack.FromLabels(labeling.Labels)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to wrap label image", err)
	}

	return &Result{Stack: stack, Labeling: labeling}, nil
}

// readExportedData reads the "exported_data" dataset (y, x, channel) and
// returns channel 0, the cell probability.
func readExportedData(path string) ([][]float32, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("cannot open classifier export %s", path), err)
	}
	defer f.Close()

	dset, err := f.OpenDataset(exportedDatasetKey)
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("export has no %q dataset", exportedDatasetKey), err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, apperrors.NewProcessingError("cannot read export dimensions", err)
	}
	if len(dims) != 3 || dims[2] < 2 {
		return nil, apperrors.NewProcessingError(
			fmt.Sprintf("unexpected export shape %v: want (y, x, channel) with at least two channels", dims), nil)
	}

	raw := make([]float32, dims[0]*dims[1]*dims[2])
	if err := dset.Read(&raw); err != nil {
		return nil, apperrors.NewProcessingError("cannot read exported probabilities", err)
	}

	// Channel 1 is present in every export but has no consumer here.
	cellProbabilities, _ := splitChannels(raw, int(dims[0]), int(dims[1]), int(dims[2]))
	return cellProbabilities, nil
}

// splitChannels de-interleaves the channel-last export into per-channel
// planes, returning channels 0 and 1.
func splitChannels(raw []float32, height, width, channels int) ([][]float32, [][]float32) {
	ch0 := make([][]float32, height)
	ch1 := make([][]float32, height)
	for y := 0; y < height; y++ {
		row0 := make([]float32, width)
		row1 := make([]float32, width)
		for x := 0; x < width; x++ {
			base := (y*width + x) * channels
			row0[x] = raw[base]
			row1[x] = raw[base+1]
		}
		ch0[y] = row0
		ch1[y] = row1
	}
	return ch0, ch1
}
