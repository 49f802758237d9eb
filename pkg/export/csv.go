// Package export writes the final embedding table for downstream consumers.
// The column layout (node_id, h0..h15, bias) is the interface contract with
// the network simulator and must not change shape.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// SaveEmbeddings writes one row per node: node_id, the embedding dimensions
// h0..h{d-1}, and the scalar bias. The file is written to a temporary name
// and renamed into place so a failed run never leaves a partial table.
func SaveEmbeddings(path string, embeddings *mat.Dense, biases []float64) error {
	rows, cols := embeddings.Dims()
	if rows != len(biases) {
		return fmt.Errorf("embedding rows (%d) and bias count (%d) mismatch", rows, len(biases))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, cols+2)
	header = append(header, "node_id")
	for j := 0; j < cols; j++ {
		header = append(header, fmt.Sprintf("h%d", j))
	}
	header = append(header, "bias")
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, cols+2)
	for i := 0; i < rows; i++ {
		record[0] = strconv.Itoa(i)
		for j := 0; j < cols; j++ {
			record[j+1] = strconv.FormatFloat(embeddings.At(i, j), 'g', -1, 64)
		}
		record[cols+1] = strconv.FormatFloat(biases[i], 'g', -1, 64)
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to publish output: %w", err)
	}
	return nil
}
