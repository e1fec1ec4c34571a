package analyzer

import (
	"fmt"

	"gocv.io/x/gocv"

	"go-cell-segmenter/pkg/validation"
)

// probabilityLabeler implements ProbabilityLabeler on top of OpenCV
type probabilityLabeler struct {
	options   LabelingOptions
	validator *validation.ProbabilityValidator
}

// NewProbabilityLabeler creates a labeler with the default Otsu +
// 4-connectivity configuration
func NewProbabilityLabeler() ProbabilityLabeler {
	return NewProbabilityLabelerWithOptions(DefaultOptions())
}

// NewProbabilityLabelerWithOptions creates a labeler with custom options
func NewProbabilityLabelerWithOptions(options LabelingOptions) ProbabilityLabeler {
	return &probabilityLabeler{
		options:   options,
		validator: validation.NewProbabilityValidator(),
	}
}

// Label binarizes the probability plane and labels its connected components.
// The same plane always yields the same label image.
func (l *probabilityLabeler) Label(probabilities [][]float32) (LabelResult, error) {
	if l.options.Connectivity != 4 && l.options.Connectivity != 8 {
		return LabelResult{}, fmt.Errorf("labeler: unsupported connectivity %d", l.options.Connectivity)
	}
	if err := l.validator.ValidatePlane(probabilities); err != nil {
		return LabelResult{}, err
	}

	height, width := len(probabilities), len(probabilities[0])

	prob := gocv.NewMatWithSize(height, width, gocv.MatTypeCV32F)
	defer prob.Close()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			prob.SetFloatAt(y, x, probabilities[y][x])
		}
	}

	// Otsu in OpenCV is defined over 8-bit images, so the probabilities are
	// scaled onto 0..255 first.
	scaled := gocv.NewMat()
	defer scaled.Close()
	prob.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, 255, 0)

	cutoff := l.options.Threshold.Compute(scaled)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(scaled, &mask, cutoff, 255, gocv.ThresholdBinary)

	labelsMat := gocv.NewMat()
	defer labelsMat.Close()
	numLabels := gocv.ConnectedComponentsWithParams(mask, &labelsMat, l.options.Connectivity, gocv.MatTypeCV32S)

	labels := make([][]int32, height)
	for y := 0; y < height; y++ {
		row := make([]int32, width)
		for x := 0; x < width; x++ {
			row[x] = labelsMat.GetIntAt(y, x)
		}
		labels[y] = row
	}

	return LabelResult{
		Labels:        labels,
		Threshold:     cutoff / 255,
		NumComponents: numLabels - 1, // label 0 is background
	}, nil
}
