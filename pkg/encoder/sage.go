package encoder

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// sageLayer is one aggregate-then-transform stage: neighbors (plus the node
// itself) are mean-pooled, then passed through a learned linear transform.
type sageLayer struct {
	weight *mat.Dense // inDim x outDim
	bias   *mat.Dense // 1 x outDim
}

func newSageLayer(inDim, outDim int, rng *rand.Rand) *sageLayer {
	// Glorot uniform initialization.
	limit := math.Sqrt(6.0 / float64(inDim+outDim))
	w := make([]float64, inDim*outDim)
	for i := range w {
		w[i] = (2.0*rng.Float64() - 1.0) * limit
	}
	return &sageLayer{
		weight: mat.NewDense(inDim, outDim, w),
		bias:   mat.NewDense(1, outDim, nil),
	}
}

// Encoder maps an N x inDim feature matrix plus connectivity to an
// N x outDim embedding matrix through two SAGE-style layers with a ReLU and
// dropout in between. Parameters are owned by the encoder; they change only
// through Step.
type Encoder struct {
	inDim, hiddenDim, outDim int
	dropout                  float64

	layer1 *sageLayer
	layer2 *sageLayer
}

// NewEncoder creates an encoder with freshly initialized parameters.
func NewEncoder(inDim, hiddenDim, outDim int, dropout float64, rng *rand.Rand) (*Encoder, error) {
	if inDim <= 0 || hiddenDim <= 0 || outDim <= 0 {
		return nil, fmt.Errorf("invalid encoder dimensions: %d -> %d -> %d", inDim, hiddenDim, outDim)
	}
	if dropout < 0 || dropout >= 1 {
		return nil, fmt.Errorf("dropout probability out of range: %f", dropout)
	}
	return &Encoder{
		inDim:     inDim,
		hiddenDim: hiddenDim,
		outDim:    outDim,
		dropout:   dropout,
		layer1:    newSageLayer(inDim, hiddenDim, rng),
		layer2:    newSageLayer(hiddenDim, outDim, rng),
	}, nil
}

// OutputDim returns the embedding width.
func (e *Encoder) OutputDim() int { return e.outDim }

// NewMeanAggregator builds the N x N mean-aggregation operator for the given
// adjacency lists: row i averages node i together with its direct neighbors.
// Dense is fine at the node counts this pipeline targets.
func NewMeanAggregator(numNodes int, adjacency [][]int) *mat.Dense {
	agg := mat.NewDense(numNodes, numNodes, nil)
	for i := 0; i < numNodes; i++ {
		w := 1.0 / float64(len(adjacency[i])+1)
		agg.Set(i, i, w)
		for _, j := range adjacency[i] {
			agg.Set(i, j, w)
		}
	}
	return agg
}

// ForwardState caches the intermediates of one training-mode forward pass so
// Backward can replay it.
type ForwardState struct {
	agg     *mat.Dense // N x N aggregation operator
	pooled1 *mat.Dense // agg * x
	pre1    *mat.Dense // pooled1 * W1 + b1
	mask    *mat.Dense // inverted dropout mask, entries 0 or 1/keep
	pooled2 *mat.Dense // agg * dropout(relu(pre1))
	out     *mat.Dense // pooled2 * W2 + b2
}

// Embeddings returns the training-mode output of the cached pass.
func (s *ForwardState) Embeddings() *mat.Dense { return s.out }

// Forward runs an evaluation-mode pass: dropout disabled, fully deterministic
// for fixed parameters and inputs.
func (e *Encoder) Forward(x, agg *mat.Dense) *mat.Dense {
	pooled1 := &mat.Dense{}
	pooled1.Mul(agg, x)
	pre1 := e.layer1.apply(pooled1)
	relu(pre1)

	pooled2 := &mat.Dense{}
	pooled2.Mul(agg, pre1)
	return e.layer2.apply(pooled2)
}

// ForwardTrain runs a training-mode pass with dropout and returns the cached
// state needed for Backward.
func (e *Encoder) ForwardTrain(x, agg *mat.Dense, rng *rand.Rand) *ForwardState {
	pooled1 := &mat.Dense{}
	pooled1.Mul(agg, x)
	pre1 := e.layer1.apply(pooled1)

	hidden := &mat.Dense{}
	hidden.CloneFrom(pre1)
	relu(hidden)

	rows, cols := hidden.Dims()
	mask := mat.NewDense(rows, cols, nil)
	keep := 1.0 - e.dropout
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if rng.Float64() >= e.dropout {
				mask.Set(i, j, 1.0/keep)
			}
		}
	}
	hidden.MulElem(hidden, mask)

	pooled2 := &mat.Dense{}
	pooled2.Mul(agg, hidden)

	return &ForwardState{
		agg:     agg,
		pooled1: pooled1,
		pre1:    pre1,
		mask:    mask,
		pooled2: pooled2,
		out:     e.layer2.apply(pooled2),
	}
}

// Gradients holds the loss gradient for every encoder parameter, in the same
// shapes as the parameters themselves.
type Gradients struct {
	weight1, bias1 *mat.Dense
	weight2, bias2 *mat.Dense
}

// Backward turns the gradient of the loss with respect to the output
// embeddings (N x outDim) into parameter gradients, using the cached forward
// state.
func (e *Encoder) Backward(state *ForwardState, gradOut *mat.Dense) *Gradients {
	g := &Gradients{}

	// Layer 2: out = pooled2 * W2 + b2
	g.weight2 = &mat.Dense{}
	g.weight2.Mul(state.pooled2.T(), gradOut)
	g.bias2 = columnSums(gradOut)

	gradPooled2 := &mat.Dense{}
	gradPooled2.Mul(gradOut, e.layer2.weight.T())

	// Through the second aggregation: pooled2 = agg * hidden.
	gradHidden := &mat.Dense{}
	gradHidden.Mul(state.agg.T(), gradPooled2)

	// Through dropout and ReLU.
	gradHidden.MulElem(gradHidden, state.mask)
	gradHidden.Apply(func(i, j int, v float64) float64 {
		if state.pre1.At(i, j) > 0 {
			return v
		}
		return 0
	}, gradHidden)

	// Layer 1: pre1 = pooled1 * W1 + b1
	g.weight1 = &mat.Dense{}
	g.weight1.Mul(state.pooled1.T(), gradHidden)
	g.bias1 = columnSums(gradHidden)

	return g
}

// Step applies one optimizer update to every parameter.
func (e *Encoder) Step(opt *Adam, grads *Gradients) {
	opt.BeginStep()
	opt.Update(0, e.layer1.weight, grads.weight1)
	opt.Update(1, e.layer1.bias, grads.bias1)
	opt.Update(2, e.layer2.weight, grads.weight2)
	opt.Update(3, e.layer2.bias, grads.bias2)
}

func (l *sageLayer) apply(pooled *mat.Dense) *mat.Dense {
	out := &mat.Dense{}
	out.Mul(pooled, l.weight)
	rows, cols := out.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, out.At(i, j)+l.bias.At(0, j))
		}
	}
	return out
}

func relu(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, m)
}

func columnSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	sums := mat.NewDense(1, cols, nil)
	for j := 0; j < cols; j++ {
		s := 0.0
		for i := 0; i < rows; i++ {
			s += m.At(i, j)
		}
		sums.Set(0, j, s)
	}
	return sums
}
