package encoder

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardize rescales every column of x to zero mean and unit standard
// deviation, in place, and returns the per-column statistics that were used.
// Fit and transform happen on the same matrix.
//
// A column with zero variance (all nodes identical) gets a standard deviation
// floor of 1 so the result is an all-zero column rather than a division by
// zero; that is expected for degenerate inputs, not an error.
func Standardize(x *mat.Dense) (means, stds []float64, err error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, fmt.Errorf("empty feature matrix: %dx%d", rows, cols)
	}

	means = make([]float64, cols)
	stds = make([]float64, cols)
	col := make([]float64, rows)

	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.MeanStdDev(col, nil)

		// Zero-variance floor. Single-row input has an undefined sample
		// deviation, treat it the same way.
		if std == 0 || math.IsNaN(std) {
			std = 1.0
		}

		means[j] = mean
		stds[j] = std

		for i := 0; i < rows; i++ {
			x.Set(i, j, (x.At(i, j)-mean)/std)
		}
	}

	return means, stds, nil
}
