package trainer

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages pipeline configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Network generation parameters
	v.SetDefault("network.num_nodes", 30)
	v.SetDefault("network.area_size", 1000.0)
	v.SetDefault("network.comm_range", 250.0)
	v.SetDefault("network.max_altitude", 150.0)

	// Model parameters
	v.SetDefault("model.hidden_dim", 32)
	v.SetDefault("model.output_dim", 16)
	v.SetDefault("model.dropout", 0.2)

	// Training parameters
	v.SetDefault("training.num_epochs", 50)
	v.SetDefault("training.learning_rate", 0.01)
	v.SetDefault("training.random_seed", 42)
	v.SetDefault("training.bias_stddev", 0.1)

	// Negative sampling parameters
	v.SetDefault("sampling.max_attempts_per_pair", 1000)

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.progress_interval", 10)

	// Output parameters
	v.SetDefault("output.dir", "outputs")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for network parameters
func (c *Config) NumNodes() int        { return c.v.GetInt("network.num_nodes") }
func (c *Config) AreaSize() float64    { return c.v.GetFloat64("network.area_size") }
func (c *Config) CommRange() float64   { return c.v.GetFloat64("network.comm_range") }
func (c *Config) MaxAltitude() float64 { return c.v.GetFloat64("network.max_altitude") }

// Getters for model parameters
func (c *Config) HiddenDim() int   { return c.v.GetInt("model.hidden_dim") }
func (c *Config) OutputDim() int   { return c.v.GetInt("model.output_dim") }
func (c *Config) Dropout() float64 { return c.v.GetFloat64("model.dropout") }

// Getters for training parameters
func (c *Config) NumEpochs() int          { return c.v.GetInt("training.num_epochs") }
func (c *Config) LearningRate() float64   { return c.v.GetFloat64("training.learning_rate") }
func (c *Config) RandomSeed() int64       { return c.v.GetInt64("training.random_seed") }
func (c *Config) BiasStdDev() float64     { return c.v.GetFloat64("training.bias_stddev") }
func (c *Config) MaxAttemptsPerPair() int { return c.v.GetInt("sampling.max_attempts_per_pair") }

func (c *Config) LogLevel() string      { return c.v.GetString("logging.level") }
func (c *Config) ProgressInterval() int { return c.v.GetInt("logging.progress_interval") }

func (c *Config) OutputDir() string { return c.v.GetString("output.dir") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "embedding").Logger()
}
