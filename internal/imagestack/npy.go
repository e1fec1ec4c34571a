package imagestack

import (
	"fmt"
	"io"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// WritePlaneNPY serializes a 2D plane in NumPy .npy format, the on-disk
// interchange format the headless classifier consumes.
func WritePlaneNPY(w io.Writer, plane [][]float32) error {
	if len(plane) == 0 || len(plane[0]) == 0 {
		return fmt.Errorf("imagestack: empty plane")
	}
	height, width := len(plane), len(plane[0])
	dense := mat.NewDense(height, width, nil)
	for y, row := range plane {
		if len(row) != width {
			return fmt.Errorf("imagestack: ragged plane at row %d", y)
		}
		for x, v := range row {
			dense.Set(y, x, float64(v))
		}
	}
	return npyio.Write(w, dense)
}

// ReadNPY reads a 2D .npy array and lifts it into the five-axis layout with
// singleton round, channel and zplane axes.
func ReadNPY(r io.Reader) (*ImageStack, error) {
	var dense mat.Dense
	if err := npyio.Read(r, &dense); err != nil {
		return nil, fmt.Errorf("imagestack: decode npy: %w", err)
	}
	height, width := dense.Dims()
	if height == 0 || width == 0 {
		return nil, fmt.Errorf("imagestack: npy array is empty")
	}
	data := make([]float32, 0, height*width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data = append(data, float32(dense.At(y, x)))
		}
	}
	return FromValues([NumAxes]int{1, 1, 1, height, width}, data)
}
