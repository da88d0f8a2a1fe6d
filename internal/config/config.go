// Package config loads svmguard configuration from defaults,
// environment variables, and an optional YAML file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full CLI configuration.
type Config struct {
	Detector  DetectorConfig
	Generator GeneratorConfig
	Logging   LoggingConfig
}

// DetectorConfig holds detector hyperparameters.
type DetectorConfig struct {
	// Algorithm selects the detector: "ocsvm" or "iforest".
	Algorithm string
	// Nu is the one-class SVM outlier-fraction bound.
	Nu float64
	// Gamma is the RBF bandwidth; 0 means 1/dim.
	Gamma float64
	// FourierFeatures is the random Fourier map width.
	FourierFeatures int
	// Epochs is the number of SGD passes.
	Epochs int
	// Trees is the isolation forest size.
	Trees int
	// SampleSize is the isolation forest subsample size.
	SampleSize int
	// Contamination is the expected anomaly fraction.
	Contamination float64
	// Seed makes training reproducible.
	Seed int64
}

// GeneratorConfig controls synthetic data generation.
type GeneratorConfig struct {
	Samples         int
	Dim             int
	Clusters        int
	StdDev          float64
	AnomalyFraction float64
	Seed            uint64
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string
	// Format is "console" or "json".
	Format string
}

// Load reads configuration. Environment variables use the SVMGUARD_
// prefix with underscores, e.g. SVMGUARD_DETECTOR_NU. path may name a
// YAML file; empty means defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("detector.algorithm", "ocsvm")
	v.SetDefault("detector.nu", 0.1)
	v.SetDefault("detector.gamma", 0.0)
	v.SetDefault("detector.fourier_features", 128)
	v.SetDefault("detector.epochs", 20)
	v.SetDefault("detector.trees", 100)
	v.SetDefault("detector.sample_size", 256)
	v.SetDefault("detector.contamination", 0.1)
	v.SetDefault("detector.seed", 42)
	v.SetDefault("generator.samples", 1000)
	v.SetDefault("generator.dim", 5)
	v.SetDefault("generator.clusters", 2)
	v.SetDefault("generator.std_dev", 0.5)
	v.SetDefault("generator.anomaly_fraction", 0.1)
	v.SetDefault("generator.seed", 42)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("SVMGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Detector: DetectorConfig{
			Algorithm:       v.GetString("detector.algorithm"),
			Nu:              v.GetFloat64("detector.nu"),
			Gamma:           v.GetFloat64("detector.gamma"),
			FourierFeatures: v.GetInt("detector.fourier_features"),
			Epochs:          v.GetInt("detector.epochs"),
			Trees:           v.GetInt("detector.trees"),
			SampleSize:      v.GetInt("detector.sample_size"),
			Contamination:   v.GetFloat64("detector.contamination"),
			Seed:            v.GetInt64("detector.seed"),
		},
		Generator: GeneratorConfig{
			Samples:         v.GetInt("generator.samples"),
			Dim:             v.GetInt("generator.dim"),
			Clusters:        v.GetInt("generator.clusters"),
			StdDev:          v.GetFloat64("generator.std_dev"),
			AnomalyFraction: v.GetFloat64("generator.anomaly_fraction"),
			Seed:            v.GetUint64("generator.seed"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Detector.Algorithm {
	case "ocsvm", "iforest":
	default:
		return fmt.Errorf("unknown detector algorithm %q", c.Detector.Algorithm)
	}
	if c.Detector.Nu <= 0 || c.Detector.Nu > 1 {
		return fmt.Errorf("detector.nu must be in (0, 1], got %v", c.Detector.Nu)
	}
	if c.Detector.Contamination < 0 || c.Detector.Contamination >= 1 {
		return fmt.Errorf("detector.contamination must be in [0, 1), got %v", c.Detector.Contamination)
	}
	return nil
}
