package uavnet

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

// Graph represents an undirected UAV communication network using simple arrays.
// Positions and raw features are sampled at generation time; the edge set is
// immutable once built.
type Graph struct {
	NumNodes  int          `json:"num_nodes"`
	NumEdges  int          `json:"num_edges"` // undirected edge count
	Positions [][3]float64 `json:"-"`         // positions[i] = (x, y, z) in meters
	Features  *mat.Dense   `json:"-"`         // N x 3 node feature matrix
	Adjacency [][]int      `json:"-"`         // adjacency[i] = neighbors of node i
	Weights   [][]float64  `json:"-"`         // unit link weights, kept for downstream compatibility
}

// NewGraph creates an empty graph with n nodes and no edges.
func NewGraph(numNodes int) *Graph {
	return &Graph{
		NumNodes:  numNodes,
		Positions: make([][3]float64, numNodes),
		Adjacency: make([][]int, numNodes),
		Weights:   make([][]float64, numNodes),
	}
}

// AddEdge adds an undirected unit-weight edge between two distinct nodes.
func (g *Graph) AddEdge(u, v int) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if u == v {
		return fmt.Errorf("self-loop rejected: node %d", u)
	}

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], 1.0)

	g.Adjacency[v] = append(g.Adjacency[v], u)
	g.Weights[v] = append(g.Weights[v], 1.0)

	g.NumEdges++
	return nil
}

// HasEdge reports whether u and v are within communication range of each other.
func (g *Graph) HasEdge(u, v int) bool {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return false
	}
	for _, neighbor := range g.Adjacency[u] {
		if neighbor == v {
			return true
		}
	}
	return false
}

// GetNeighbors returns the neighbor list of a node.
func (g *Graph) GetNeighbors(node int) []int {
	if node < 0 || node >= g.NumNodes {
		return nil
	}
	return g.Adjacency[node]
}

// DirectedEdges returns every edge in both directions, (i,j) and (j,i).
// These are the positive pairs for contrastive training.
func (g *Graph) DirectedEdges() [][2]int {
	edges := make([][2]int, 0, 2*g.NumEdges)
	for u := 0; u < g.NumNodes; u++ {
		for _, v := range g.Adjacency[u] {
			edges = append(edges, [2]int{u, v})
		}
	}
	return edges
}

// MeanDegree returns the average node degree.
func (g *Graph) MeanDegree() float64 {
	if g.NumNodes == 0 {
		return 0.0
	}
	return 2.0 * float64(g.NumEdges) / float64(g.NumNodes)
}

// Validate checks graph consistency: symmetric adjacency, no self-loops,
// neighbor indices in range.
func (g *Graph) Validate() error {
	if g.NumNodes <= 0 {
		return fmt.Errorf("graph must have positive number of nodes")
	}

	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) != len(g.Weights[i]) {
			return fmt.Errorf("adjacency and weights arrays inconsistent for node %d", i)
		}

		for _, neighbor := range g.Adjacency[i] {
			if neighbor < 0 || neighbor >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", neighbor, i)
			}
			if neighbor == i {
				return fmt.Errorf("self-loop on node %d", i)
			}
			if !g.HasEdge(neighbor, i) {
				return fmt.Errorf("asymmetric edge %d-%d", i, neighbor)
			}
		}
	}

	return nil
}

// ToGonum converts the graph to a gonum simple.UndirectedGraph. Node IDs map
// directly to the graph's integer indices.
func (g *Graph) ToGonum() *simple.UndirectedGraph {
	gg := simple.NewUndirectedGraph()
	for i := 0; i < g.NumNodes; i++ {
		gg.AddNode(simple.Node(int64(i)))
	}
	for u := 0; u < g.NumNodes; u++ {
		for _, v := range g.Adjacency[u] {
			if u < v {
				gg.SetEdge(simple.Edge{F: simple.Node(int64(u)), T: simple.Node(int64(v))})
			}
		}
	}
	return gg
}

// ComponentCount returns the number of connected components.
func (g *Graph) ComponentCount() int {
	return len(topo.ConnectedComponents(g.ToGonum()))
}

// Distance returns the Euclidean distance between two node positions.
func (g *Graph) Distance(u, v int) float64 {
	dx := g.Positions[u][0] - g.Positions[v][0]
	dy := g.Positions[u][1] - g.Positions[v][1]
	dz := g.Positions[u][2] - g.Positions[v][2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
