package validation

import (
	"fmt"

	apperrors "go-cell-segmenter/internal/errors"
)

// ProbabilityValidator checks that a classifier probability plane is usable
// before it is thresholded
type ProbabilityValidator struct {
	min float32
	max float32
}

// NewProbabilityValidator creates a validator for standard [0, 1] probability
// planes
func NewProbabilityValidator() *ProbabilityValidator {
	return &ProbabilityValidator{min: 0, max: 1}
}

// ValidatePlane verifies the plane is non-empty, rectangular, and that every
// value lies within the probability range
func (v *ProbabilityValidator) ValidatePlane(plane [][]float32) error {
	if len(plane) == 0 || len(plane[0]) == 0 {
		return apperrors.NewValidationError("probability plane is empty", nil)
	}

	width := len(plane[0])
	for y, row := range plane {
		if len(row) != width {
			return apperrors.NewValidationError(
				fmt.Sprintf("probability plane is ragged at row %d (%d values, expected %d)", y, len(row), width), nil)
		}
		for x, value := range row {
			if value < v.min || value > v.max {
				return apperrors.NewValidationError(
					fmt.Sprintf("probability out of range at (%d, %d): %f", y, x, value), nil)
			}
		}
	}
	return nil
}
