package trainer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gsqr/uav-embedding-service/pkg/encoder"
	"github.com/gsqr/uav-embedding-service/pkg/uavnet"
)

// runPipeline generates, standardizes and trains with the given seed, the way
// main wires the stages together.
func runPipeline(t *testing.T, config *Config) (*uavnet.Graph, *Result) {
	t.Helper()

	rng := rand.New(rand.NewSource(config.RandomSeed()))
	graph, err := uavnet.Generate(uavnet.Config{
		NumNodes:    config.NumNodes(),
		AreaSize:    config.AreaSize(),
		CommRange:   config.CommRange(),
		MaxAltitude: config.MaxAltitude(),
	}, rng)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, _, err := encoder.Standardize(graph.Features); err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	result, err := Run(graph, config, rng, context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return graph, result
}

func quietConfig() *Config {
	config := NewConfig()
	config.Set("logging.level", "error")
	return config
}

func TestRunEndToEnd(t *testing.T) {
	config := quietConfig()
	graph, result := runPipeline(t, config)

	rows, cols := result.Embeddings.Dims()
	if rows != graph.NumNodes || cols != config.OutputDim() {
		t.Fatalf("Expected %dx%d embeddings, got %dx%d", graph.NumNodes, config.OutputDim(), rows, cols)
	}
	if len(result.Biases) != graph.NumNodes {
		t.Fatalf("Expected %d biases, got %d", graph.NumNodes, len(result.Biases))
	}
	if len(result.Losses) != config.NumEpochs() {
		t.Fatalf("Expected %d recorded losses, got %d", config.NumEpochs(), len(result.Losses))
	}

	for _, l := range result.Losses {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			t.Fatalf("Non-finite loss recorded: %f", l)
		}
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := result.Embeddings.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Non-finite embedding at (%d,%d): %f", i, j, v)
			}
		}
	}

	// Contrastive training on a connected geometric graph should improve.
	if result.Statistics.FinalLoss >= result.Statistics.InitialLoss {
		t.Errorf("Loss did not improve: initial %f, final %f",
			result.Statistics.InitialLoss, result.Statistics.FinalLoss)
	}
	if result.Statistics.PositivePairs != 2*graph.NumEdges {
		t.Errorf("Expected %d positive pairs, got %d", 2*graph.NumEdges, result.Statistics.PositivePairs)
	}
}

func TestRunReproducible(t *testing.T) {
	_, a := runPipeline(t, quietConfig())
	_, b := runPipeline(t, quietConfig())

	if !mat.Equal(a.Embeddings, b.Embeddings) {
		t.Errorf("Embeddings differ across identically seeded runs")
	}
	for i := range a.Biases {
		if a.Biases[i] != b.Biases[i] {
			t.Errorf("Bias %d differs across identically seeded runs", i)
		}
	}
	for i := range a.Losses {
		if a.Losses[i] != b.Losses[i] {
			t.Errorf("Loss at epoch %d differs across identically seeded runs", i)
		}
	}
}

func TestRunRejectsEdgelessGraph(t *testing.T) {
	graph := uavnet.NewGraph(5)
	rng := rand.New(rand.NewSource(1))

	_, err := Run(graph, quietConfig(), rng, context.Background())
	if !errors.Is(err, uavnet.ErrNoConnectivity) {
		t.Fatalf("Expected ErrNoConnectivity, got %v", err)
	}
}

func TestRunRejectsNonPositiveEpochs(t *testing.T) {
	graph := uavnet.NewGraph(3)
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)
	graph.Features = mat.NewDense(3, uavnet.NumFeatures, nil)

	for _, epochs := range []int{0, -5} {
		config := quietConfig()
		config.Set("training.num_epochs", epochs)

		rng := rand.New(rand.NewSource(1))
		if _, err := Run(graph, config, rng, context.Background()); err == nil {
			t.Errorf("Expected error for epoch count %d", epochs)
		}
	}
}

func TestRunDetectsNonFiniteLoss(t *testing.T) {
	// An infinite feature value survives the ReLU and poisons the loss; the
	// trainer must stop instead of stepping on corrupted gradients.
	graph := uavnet.NewGraph(3)
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)
	features := mat.NewDense(3, uavnet.NumFeatures, nil)
	features.Set(0, 0, math.Inf(1))
	graph.Features = features

	rng := rand.New(rand.NewSource(1))
	_, err := Run(graph, quietConfig(), rng, context.Background())
	if !errors.Is(err, ErrNumericInstability) {
		t.Fatalf("Expected ErrNumericInstability, got %v", err)
	}
}

func TestSampleNegativesValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	graph, err := uavnet.Generate(uavnet.DefaultConfig(), rng)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	count := 2 * graph.NumEdges
	negatives, err := sampleNegatives(graph, count, 1000, rng)
	if err != nil {
		t.Fatalf("sampleNegatives failed: %v", err)
	}
	if len(negatives) != count {
		t.Fatalf("Expected %d negatives, got %d", count, len(negatives))
	}

	for _, p := range negatives {
		if p[0] == p[1] {
			t.Errorf("Negative pair with i == j: %v", p)
		}
		if graph.HasEdge(p[0], p[1]) {
			t.Errorf("Negative pair %v is an edge", p)
		}
	}
}

func TestSampleNegativesDenseGraph(t *testing.T) {
	// Complete graph: no non-edge exists, sampling must fail fast.
	graph := uavnet.NewGraph(5)
	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			graph.AddEdge(i, j)
		}
	}

	rng := rand.New(rand.NewSource(1))
	_, err := sampleNegatives(graph, 10, 50, rng)
	if !errors.Is(err, ErrGraphTooDense) {
		t.Fatalf("Expected ErrGraphTooDense, got %v", err)
	}
}

func TestContrastiveLossStability(t *testing.T) {
	// Large-magnitude similarities must not overflow the log-sigmoid terms.
	embeddings := mat.NewDense(4, 2, []float64{
		100, 100,
		100, 100,
		-100, -100,
		-100, -100,
	})
	positives := [][2]int{{0, 1}}
	negatives := [][2]int{{0, 2}}

	loss, grad := contrastiveLoss(embeddings, positives, negatives)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Fatalf("Non-finite loss: %f", loss)
	}

	rows, cols := grad.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := grad.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Non-finite gradient at (%d,%d): %f", i, j, v)
			}
		}
	}
}

func TestLogSigmoid(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, -math.Ln2},
		{1000, 0},
		{-1000, -1000},
	}
	for _, tt := range tests {
		got := logSigmoid(tt.x)
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("logSigmoid(%f) is non-finite: %f", tt.x, got)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("logSigmoid(%f) = %g, expected %g", tt.x, got, tt.want)
		}
	}
}
