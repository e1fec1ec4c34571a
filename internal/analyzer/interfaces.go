package analyzer

// ProbabilityLabeler converts a 2D cell-probability plane into an integer
// label image: binarize at a strategy-chosen threshold, then label connected
// components. Background is label 0.
type ProbabilityLabeler interface {
	Label(probabilities [][]float32) (LabelResult, error)
}

// LabelResult holds the outcome of thresholding + connected-component
// labeling for one probability plane.
type LabelResult struct {
	// Labels has the same height/width as the input plane. 0 is background;
	// components are numbered from 1.
	Labels [][]int32

	// Threshold is the binarization cutoff that was applied, in probability
	// units (0..1).
	Threshold float32

	// NumComponents counts the non-background components.
	NumComponents int
}
