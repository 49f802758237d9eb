package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gsqr/uav-embedding-service/pkg/encoder"
	"github.com/gsqr/uav-embedding-service/pkg/uavnet"
)

// ErrGraphTooDense is returned when negative sampling exhausts its retry
// budget because almost every node pair is an edge.
var ErrGraphTooDense = errors.New("graph too dense for negative sampling")

// ErrNumericInstability is returned when the loss becomes NaN or infinite;
// continuing to train on corrupted parameters would be silent garbage.
var ErrNumericInstability = errors.New("non-finite training loss")

// Result represents the trainer output
type Result struct {
	Embeddings *mat.Dense `json:"-"`      // N x outputDim, evaluation-mode
	Biases     []float64  `json:"biases"` // independently sampled per-node bias
	Losses     []float64  `json:"losses"` // one entry per epoch
	Statistics Statistics `json:"statistics"`
}

// Statistics contains training run metrics
type Statistics struct {
	NumNodes      int     `json:"num_nodes"`
	PositivePairs int     `json:"positive_pairs"`
	Epochs        int     `json:"epochs"`
	InitialLoss   float64 `json:"initial_loss"`
	FinalLoss     float64 `json:"final_loss"`
	RuntimeMS     int64   `json:"runtime_ms"`
}

// Run trains the SAGE encoder on the given network with a contrastive
// link-prediction objective and returns evaluation-mode embeddings plus the
// per-node bias. graph.Features must already be standardized. The epoch count
// is fixed; there is no convergence-based early stop.
func Run(graph *uavnet.Graph, config *Config, rng *rand.Rand, ctx context.Context) (*Result, error) {
	startTime := time.Now()
	logger := config.CreateLogger()

	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if config.NumEpochs() < 1 {
		return nil, fmt.Errorf("epoch count must be at least 1, got %d", config.NumEpochs())
	}
	if graph.NumEdges == 0 {
		return nil, fmt.Errorf("%w: nodes=%d", uavnet.ErrNoConnectivity, graph.NumNodes)
	}

	positives := graph.DirectedEdges()

	logger.Info().
		Int("nodes", graph.NumNodes).
		Int("positive_pairs", len(positives)).
		Int("epochs", config.NumEpochs()).
		Float64("learning_rate", config.LearningRate()).
		Msg("Starting embedding training")

	enc, err := encoder.NewEncoder(uavnet.NumFeatures, config.HiddenDim(), config.OutputDim(), config.Dropout(), rng)
	if err != nil {
		return nil, fmt.Errorf("encoder construction failed: %w", err)
	}

	agg := encoder.NewMeanAggregator(graph.NumNodes, graph.Adjacency)
	opt := encoder.NewAdam(config.LearningRate())

	result := &Result{
		Losses: make([]float64, 0, config.NumEpochs()),
	}

	for epoch := 0; epoch < config.NumEpochs(); epoch++ {
		state := enc.ForwardTrain(graph.Features, agg, rng)
		embeddings := state.Embeddings()

		negatives, err := sampleNegatives(graph, len(positives), config.MaxAttemptsPerPair(), rng)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		loss, gradOut := contrastiveLoss(embeddings, positives, negatives)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, fmt.Errorf("%w: epoch %d, loss=%f", ErrNumericInstability, epoch, loss)
		}

		grads := enc.Backward(state, gradOut)
		enc.Step(opt, grads)

		result.Losses = append(result.Losses, loss)

		if interval := config.ProgressInterval(); interval > 0 && (epoch+1)%interval == 0 {
			logger.Info().
				Int("epoch", epoch+1).
				Float64("loss", loss).
				Msg("Training progress")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	// Published embeddings come from one evaluation-mode pass; training-mode
	// outputs are never exposed.
	result.Embeddings = enc.Forward(graph.Features, agg)

	// Per-node bias, drawn independently of the learned embedding.
	result.Biases = make([]float64, graph.NumNodes)
	for i := range result.Biases {
		result.Biases[i] = rng.NormFloat64() * config.BiasStdDev()
	}

	result.Statistics = Statistics{
		NumNodes:      graph.NumNodes,
		PositivePairs: len(positives),
		Epochs:        len(result.Losses),
		InitialLoss:   result.Losses[0],
		FinalLoss:     result.Losses[len(result.Losses)-1],
		RuntimeMS:     time.Since(startTime).Milliseconds(),
	}

	logger.Info().
		Float64("initial_loss", result.Statistics.InitialLoss).
		Float64("final_loss", result.Statistics.FinalLoss).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Training completed")

	return result, nil
}

// sampleNegatives draws count node pairs that are neither self-pairs nor
// edges, uniformly with replacement by rejection sampling. The total draw
// budget is capped so a near-complete graph fails fast instead of spinning.
func sampleNegatives(graph *uavnet.Graph, count, maxAttemptsPerPair int, rng *rand.Rand) ([][2]int, error) {
	negatives := make([][2]int, 0, count)
	budget := count * maxAttemptsPerPair

	for len(negatives) < count {
		if budget <= 0 {
			return nil, fmt.Errorf("%w: nodes=%d, edges=%d, sampled=%d/%d",
				ErrGraphTooDense, graph.NumNodes, graph.NumEdges, len(negatives), count)
		}
		budget--

		i := rng.Intn(graph.NumNodes)
		j := rng.Intn(graph.NumNodes)
		if i != j && !graph.HasEdge(i, j) {
			negatives = append(negatives, [2]int{i, j})
		}
	}

	return negatives, nil
}

// contrastiveLoss scores positive pairs against negative pairs by embedding
// dot product and returns the binary cross-entropy style loss together with
// its gradient with respect to the embeddings:
//
//	loss = -mean(logsigmoid(pos)) - mean(logsigmoid(-neg))
func contrastiveLoss(embeddings *mat.Dense, positives, negatives [][2]int) (float64, *mat.Dense) {
	rows, cols := embeddings.Dims()
	gradOut := mat.NewDense(rows, cols, nil)

	posLoss := 0.0
	for _, p := range positives {
		s := pairSimilarity(embeddings, p[0], p[1])
		posLoss -= logSigmoid(s)
		// d(-logsigmoid(s))/ds = sigmoid(s) - 1
		accumulatePairGrad(gradOut, embeddings, p[0], p[1], (sigmoid(s)-1.0)/float64(len(positives)))
	}

	negLoss := 0.0
	for _, p := range negatives {
		s := pairSimilarity(embeddings, p[0], p[1])
		negLoss -= logSigmoid(-s)
		// d(-logsigmoid(-s))/ds = sigmoid(s)
		accumulatePairGrad(gradOut, embeddings, p[0], p[1], sigmoid(s)/float64(len(negatives)))
	}

	return posLoss/float64(len(positives)) + negLoss/float64(len(negatives)), gradOut
}

func pairSimilarity(embeddings *mat.Dense, i, j int) float64 {
	return mat.Dot(embeddings.RowView(i), embeddings.RowView(j))
}

// accumulatePairGrad adds coef * e_j to row i of the gradient and
// coef * e_i to row j, the derivative of their dot product.
func accumulatePairGrad(gradOut, embeddings *mat.Dense, i, j int, coef float64) {
	_, cols := embeddings.Dims()
	for k := 0; k < cols; k++ {
		gradOut.Set(i, k, gradOut.At(i, k)+coef*embeddings.At(j, k))
		gradOut.Set(j, k, gradOut.At(j, k)+coef*embeddings.At(i, k))
	}
}

// logSigmoid computes log(sigmoid(x)) without overflow for large |x|.
func logSigmoid(x float64) float64 {
	if x >= 0 {
		return -math.Log1p(math.Exp(-x))
	}
	return x - math.Log1p(math.Exp(x))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
