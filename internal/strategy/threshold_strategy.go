package strategy

import (
	"gocv.io/x/gocv"
)

// ThresholdStrategy picks the binarization cutoff for an 8-bit probability
// image (probabilities scaled to 0..255). Pixels strictly above the cutoff
// are foreground.
type ThresholdStrategy interface {
	Compute(img gocv.Mat) float32
	GetStrategyName() string
}

// OtsuThresholdStrategy picks a global threshold that best separates the two
// intensity modes of the probability image.
type OtsuThresholdStrategy struct{}

// NewOtsuThresholdStrategy creates the default Otsu strategy
func NewOtsuThresholdStrategy() ThresholdStrategy {
	return &OtsuThresholdStrategy{}
}

// Compute runs Otsu's method over the full image histogram
func (s *OtsuThresholdStrategy) Compute(img gocv.Mat) float32 {
	scratch := gocv.NewMat()
	defer scratch.Close()
	return gocv.Threshold(img, &scratch, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
}

// GetStrategyName returns the strategy name
func (s *OtsuThresholdStrategy) GetStrategyName() string {
	return "otsu"
}

// FixedThresholdStrategy binarizes at a caller-supplied probability cutoff
// instead of deriving one from the image.
type FixedThresholdStrategy struct {
	// Value is a probability in [0, 1].
	Value float32
}

// NewFixedThresholdStrategy creates a fixed-cutoff strategy
func NewFixedThresholdStrategy(value float32) ThresholdStrategy {
	return &FixedThresholdStrategy{Value: value}
}

// Compute converts the probability cutoff to the 8-bit scale
func (s *FixedThresholdStrategy) Compute(img gocv.Mat) float32 {
	return s.Value * 255
}

// GetStrategyName returns the strategy name
func (s *FixedThresholdStrategy) GetStrategyName() string {
	return "fixed"
}
