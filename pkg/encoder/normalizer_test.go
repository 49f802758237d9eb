package encoder

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestStandardize(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows, cols := 50, 3
	x := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 0.5+rng.Float64()*1.5)
		x.Set(i, 1, 0.3+rng.Float64()*0.7)
		x.Set(i, 2, rng.Float64()*0.8)
	}

	if _, _, err := Standardize(x); err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.MeanStdDev(col, nil)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("Column %d mean %g, expected ~0", j, mean)
		}
		if math.Abs(std-1.0) > 1e-9 {
			t.Errorf("Column %d std %g, expected ~1", j, std)
		}
	}
}

func TestStandardizeZeroVariance(t *testing.T) {
	rows := 10
	x := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 3.5) // constant column
		x.Set(i, 1, float64(i))
	}

	if _, _, err := Standardize(x); err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	// Constant column becomes all zeros instead of dividing by zero.
	for i := 0; i < rows; i++ {
		v := x.At(i, 0)
		if v != 0 {
			t.Errorf("Row %d of constant column: got %g, expected 0", i, v)
		}
		if math.IsNaN(x.At(i, 1)) {
			t.Errorf("Row %d of varying column is NaN", i)
		}
	}
}

func TestStandardizeEmpty(t *testing.T) {
	if _, _, err := Standardize(&mat.Dense{}); err == nil {
		t.Fatalf("Expected error for empty matrix")
	}
}
