package imagestack

import (
	"fmt"
)

// Axis indices of the fixed five-axis tensor layout, in storage order.
const (
	AxisRound = iota
	AxisCh
	AxisZPlane
	AxisY
	AxisX

	NumAxes = 5
)

// ImageStack is the in-memory image container used across the pipeline: a
// dense five-axis tensor (round, channel, zplane, y, x) in row-major order.
// Label images are carried in the same container with the label IDs stored
// as float32 values.
type ImageStack struct {
	shape [NumAxes]int
	data  []float32
}

// FromValues wraps raw row-major data in an ImageStack. The data length must
// match the product of the shape.
func FromValues(shape [NumAxes]int, data []float32) (*ImageStack, error) {
	n := 1
	for i, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("imagestack: axis %d has non-positive size %d", i, dim)
		}
		n *= dim
	}
	if len(data) != n {
		return nil, fmt.Errorf("imagestack: shape %v wants %d values, got %d", shape, n, len(data))
	}
	return &ImageStack{shape: shape, data: data}, nil
}

// FromLabels lifts a 2D label image into the five-axis layout by prepending
// three singleton axes (round, channel, zplane).
func FromLabels(labels [][]int32) (*ImageStack, error) {
	if len(labels) == 0 || len(labels[0]) == 0 {
		return nil, fmt.Errorf("imagestack: empty label image")
	}
	height, width := len(labels), len(labels[0])
	data := make([]float32, 0, height*width)
	for y, row := range labels {
		if len(row) != width {
			return nil, fmt.Errorf("imagestack: ragged label image at row %d", y)
		}
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return &ImageStack{
		shape: [NumAxes]int{1, 1, 1, height, width},
		data:  data,
	}, nil
}

// Shape returns the per-axis sizes.
func (s *ImageStack) Shape() [NumAxes]int {
	return s.shape
}

// Size returns the total number of values in the stack.
func (s *ImageStack) Size() int {
	return len(s.data)
}

// Data returns the underlying row-major values. The slice is shared, not
// copied.
func (s *ImageStack) Data() []float32 {
	return s.data
}

// At returns the value at the given five-axis coordinate.
func (s *ImageStack) At(round, ch, zplane, y, x int) float32 {
	idx := ((((round*s.shape[AxisCh])+ch)*s.shape[AxisZPlane]+zplane)*s.shape[AxisY]+y)*s.shape[AxisX] + x
	return s.data[idx]
}

// SqueezeYX drops the three leading axes and returns the single y/x plane.
// The round, channel and zplane axes must all be singletons; a stack with
// more than one plane cannot be handed to a 2D pixel classifier.
func (s *ImageStack) SqueezeYX() ([][]float32, error) {
	if s.shape[AxisRound] != 1 || s.shape[AxisCh] != 1 || s.shape[AxisZPlane] != 1 {
		return nil, fmt.Errorf("imagestack: cannot squeeze shape %v to a single y/x plane", s.shape)
	}
	height, width := s.shape[AxisY], s.shape[AxisX]
	plane := make([][]float32, height)
	for y := 0; y < height; y++ {
		plane[y] = s.data[y*width : (y+1)*width]
	}
	return plane, nil
}
