// Package viz renders diagnostic images for a training run: the loss curve
// and a 2D PCA projection of the learned embeddings with the network topology
// overlaid. Both are informational only; nothing downstream consumes them.
package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gsqr/uav-embedding-service/pkg/uavnet"
)

// SaveLossCurve plots per-epoch training loss to a PNG.
func SaveLossCurve(path string, losses []float64) error {
	if len(losses) == 0 {
		return fmt.Errorf("no losses to plot")
	}

	pts := make(plotter.XYs, len(losses))
	for i, l := range losses {
		pts[i].X = float64(i)
		pts[i].Y = l
	}

	p := plot.New()
	p.Title.Text = "Contrastive Training Loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build loss line: %w", err)
	}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save loss curve: %w", err)
	}
	return nil
}

// SaveProjection projects the embeddings onto their first two principal
// components and draws them as a scatter plot with the communication links
// overlaid in the projected space.
func SaveProjection(path string, embeddings *mat.Dense, graph *uavnet.Graph) error {
	proj, err := projectPCA(embeddings)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Node Embeddings (2D PCA Projection)"
	p.X.Label.Text = "PCA Component 1"
	p.Y.Label.Text = "PCA Component 2"

	edgeColor := color.RGBA{R: 128, G: 128, B: 128, A: 80}
	for u := 0; u < graph.NumNodes; u++ {
		for _, v := range graph.Adjacency[u] {
			if u >= v {
				continue
			}
			seg := plotter.XYs{
				{X: proj.At(u, 0), Y: proj.At(u, 1)},
				{X: proj.At(v, 0), Y: proj.At(v, 1)},
			}
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("failed to build edge segment: %w", err)
			}
			line.Color = edgeColor
			p.Add(line)
		}
	}

	rows, _ := proj.Dims()
	pts := make(plotter.XYs, rows)
	for i := 0; i < rows; i++ {
		pts[i].X = proj.At(i, 0)
		pts[i].Y = proj.At(i, 1)
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	p.Add(plotter.NewGrid(), scatter)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save projection: %w", err)
	}
	return nil
}

// projectPCA returns the N x 2 projection of x onto its first two principal
// components, computed on column-centered data.
func projectPCA(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("too few points for PCA projection: %dx%d", rows, cols)
	}

	centered := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < rows; i++ {
			centered.Set(i, j, x.At(i, j)-mean)
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(centered, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	proj := &mat.Dense{}
	proj.Mul(centered, vecs.Slice(0, cols, 0, 2))
	return proj, nil
}
