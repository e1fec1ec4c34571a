package analyzer

import (
	"go-cell-segmenter/internal/strategy"
)

// LabelingOptions configures thresholding and connected-component labeling
type LabelingOptions struct {
	// Connectivity is the pixel neighbourhood used for component labeling:
	// 4 (edge-adjacent) or 8 (edge- and corner-adjacent).
	Connectivity int

	// Threshold selects the binarization cutoff for the probability plane.
	Threshold strategy.ThresholdStrategy
}

// DefaultOptions returns the labeling configuration used by the import
// pipeline: Otsu threshold and 4-connectivity.
func DefaultOptions() LabelingOptions {
	return LabelingOptions{
		Connectivity: 4,
		Threshold:    strategy.NewOtsuThresholdStrategy(),
	}
}

// WithFixedThreshold replaces the Otsu cutoff with a fixed probability value
func (opts LabelingOptions) WithFixedThreshold(value float32) LabelingOptions {
	opts.Threshold = strategy.NewFixedThresholdStrategy(value)
	return opts
}

// WithConnectivity sets the labeling neighbourhood (4 or 8)
func (opts LabelingOptions) WithConnectivity(connectivity int) LabelingOptions {
	opts.Connectivity = connectivity
	return opts
}
