package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gsqr/uav-embedding-service/pkg/encoder"
	"github.com/gsqr/uav-embedding-service/pkg/export"
	"github.com/gsqr/uav-embedding-service/pkg/trainer"
	"github.com/gsqr/uav-embedding-service/pkg/uavnet"
	"github.com/gsqr/uav-embedding-service/pkg/viz"
)

func main() {
	numNodes := flag.Int("nodes", 0, "number of UAV nodes (default from config: 30)")
	numEpochs := flag.Int("epochs", 0, "number of training epochs (default from config: 50)")
	seed := flag.Int64("seed", 0, "random seed (default from config: 42)")
	configFile := flag.String("config", "", "optional config file (yaml/toml/json)")
	outDir := flag.String("out", "", "output directory (default from config: outputs)")
	flag.Parse()

	config := trainer.NewConfig()
	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", *configFile, err)
			os.Exit(1)
		}
	}
	if *numNodes > 0 {
		config.Set("network.num_nodes", *numNodes)
	}
	if *numEpochs > 0 {
		config.Set("training.num_epochs", *numEpochs)
	}
	if *seed != 0 {
		config.Set("training.random_seed", *seed)
	}
	if *outDir != "" {
		config.Set("output.dir", *outDir)
	}

	logger := config.CreateLogger()

	// One explicit RNG for the whole run: generation, dropout, negative
	// sampling and bias draws all share it, so a fixed seed reproduces the
	// full pipeline.
	rng := rand.New(rand.NewSource(config.RandomSeed()))

	netConfig := uavnet.Config{
		NumNodes:    config.NumNodes(),
		AreaSize:    config.AreaSize(),
		CommRange:   config.CommRange(),
		MaxAltitude: config.MaxAltitude(),
	}

	graph, err := uavnet.Generate(netConfig, rng)
	if err != nil {
		logger.Fatal().Err(err).Msg("Network generation failed")
	}

	logger.Info().
		Int("nodes", graph.NumNodes).
		Int("edges", graph.NumEdges).
		Float64("mean_degree", graph.MeanDegree()).
		Int("components", graph.ComponentCount()).
		Msg("UAV network generated")

	if _, _, err := encoder.Standardize(graph.Features); err != nil {
		logger.Fatal().Err(err).Msg("Feature standardization failed")
	}

	result, err := trainer.Run(graph, config, rng, context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Training failed")
	}

	csvPath := filepath.Join(config.OutputDir(), "emb_16.csv")
	if err := export.SaveEmbeddings(csvPath, result.Embeddings, result.Biases); err != nil {
		logger.Fatal().Err(err).Msg("Embedding export failed")
	}
	logger.Info().Str("path", csvPath).Int("nodes", graph.NumNodes).Msg("Embeddings exported")

	lossPath := filepath.Join(config.OutputDir(), "training_loss.png")
	if err := viz.SaveLossCurve(lossPath, result.Losses); err != nil {
		logger.Fatal().Err(err).Msg("Loss curve rendering failed")
	}

	projPath := filepath.Join(config.OutputDir(), "embedding_visualization.png")
	if err := viz.SaveProjection(projPath, result.Embeddings, graph); err != nil {
		logger.Fatal().Err(err).Msg("Embedding projection rendering failed")
	}

	logger.Info().
		Str("embeddings", csvPath).
		Str("loss_curve", lossPath).
		Str("projection", projPath).
		Msg("Pipeline completed")
}
