package encoder

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is an adaptive-moment gradient optimizer. Moment estimates are kept
// per parameter slot, lazily allocated on first update.
type Adam struct {
	lr, beta1, beta2, epsilon float64

	step int
	m    map[int]*mat.Dense // first-moment estimates by parameter slot
	v    map[int]*mat.Dense // second-moment estimates by parameter slot
}

// NewAdam creates an Adam optimizer with the standard moment decay rates.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		lr:      learningRate,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		m:       make(map[int]*mat.Dense),
		v:       make(map[int]*mat.Dense),
	}
}

// BeginStep advances the shared timestep. Call once per training step, before
// updating any parameter.
func (a *Adam) BeginStep() {
	a.step++
}

// Update applies one bias-corrected Adam update to param in place. The slot
// identifies the parameter so its moment estimates persist across steps.
func (a *Adam) Update(slot int, param, grad *mat.Dense) {
	rows, cols := param.Dims()

	m, ok := a.m[slot]
	if !ok {
		m = mat.NewDense(rows, cols, nil)
		a.m[slot] = m
	}
	v, ok := a.v[slot]
	if !ok {
		v = mat.NewDense(rows, cols, nil)
		a.v[slot] = v
	}

	corr1 := 1.0 - math.Pow(a.beta1, float64(a.step))
	corr2 := 1.0 - math.Pow(a.beta2, float64(a.step))

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g := grad.At(i, j)

			mij := a.beta1*m.At(i, j) + (1.0-a.beta1)*g
			vij := a.beta2*v.At(i, j) + (1.0-a.beta2)*g*g
			m.Set(i, j, mij)
			v.Set(i, j, vij)

			mHat := mij / corr1
			vHat := vij / corr2
			param.Set(i, j, param.At(i, j)-a.lr*mHat/(math.Sqrt(vHat)+a.epsilon))
		}
	}
}
