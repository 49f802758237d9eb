package uavnet

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrNoConnectivity is returned when the sampled topology has no edges at all.
// Training on an edgeless graph is meaningless, so callers must treat this as
// fatal for the run.
var ErrNoConnectivity = errors.New("generated network has no edges")

// Raw feature sampling ranges: link-quality estimate (ETX), remaining energy
// fraction, queue occupancy fraction.
const (
	ETXMin    = 0.5
	ETXMax    = 2.0
	EnergyMin = 0.3
	EnergyMax = 1.0
	QueueMin  = 0.0
	QueueMax  = 0.8
)

// NumFeatures is the width of the raw per-node feature vector.
const NumFeatures = 3

// Config holds network generation parameters.
type Config struct {
	NumNodes    int     // number of UAV nodes
	AreaSize    float64 // horizontal extent of the deployment box, meters
	CommRange   float64 // maximum link distance, meters
	MaxAltitude float64 // vertical extent of the deployment box, meters
}

// DefaultConfig returns the standard 30-node scenario.
func DefaultConfig() Config {
	return Config{
		NumNodes:    30,
		AreaSize:    1000.0,
		CommRange:   250.0,
		MaxAltitude: 150.0,
	}
}

// Generate builds a random geometric UAV network: uniform 3D positions inside
// the deployment box, an edge for every node pair closer than the
// communication range, and independently sampled raw features per node.
//
// The pairwise O(N^2) range scan is fine for tens to low hundreds of nodes;
// larger deployments would want a spatial grid instead.
func Generate(cfg Config, rng *rand.Rand) (*Graph, error) {
	if cfg.NumNodes <= 0 {
		return nil, fmt.Errorf("invalid node count: %d", cfg.NumNodes)
	}
	if cfg.CommRange <= 0 {
		return nil, fmt.Errorf("invalid communication range: %f", cfg.CommRange)
	}

	g := NewGraph(cfg.NumNodes)

	for i := 0; i < cfg.NumNodes; i++ {
		g.Positions[i] = [3]float64{
			rng.Float64() * cfg.AreaSize,
			rng.Float64() * cfg.AreaSize,
			rng.Float64() * cfg.MaxAltitude,
		}
	}

	for i := 0; i < cfg.NumNodes; i++ {
		for j := i + 1; j < cfg.NumNodes; j++ {
			if g.Distance(i, j) < cfg.CommRange {
				if err := g.AddEdge(i, j); err != nil {
					return nil, fmt.Errorf("failed to add edge %d-%d: %w", i, j, err)
				}
			}
		}
	}

	features := mat.NewDense(cfg.NumNodes, NumFeatures, nil)
	for i := 0; i < cfg.NumNodes; i++ {
		features.Set(i, 0, uniform(rng, ETXMin, ETXMax))
		features.Set(i, 1, uniform(rng, EnergyMin, EnergyMax))
		features.Set(i, 2, uniform(rng, QueueMin, QueueMax))
	}
	g.Features = features

	if g.NumEdges == 0 {
		return nil, fmt.Errorf("%w: nodes=%d, area=%.0f, range=%.0f",
			ErrNoConnectivity, cfg.NumNodes, cfg.AreaSize, cfg.CommRange)
	}

	return g, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
