package detector

import (
	"errors"
	"fmt"
	"os"
)

// Config holds configuration for a local food detector model.
type Config struct {
	Name          string  // Identifier used in logs and metrics
	ModelPath     string  // Path to the ONNX detection model
	LabelsPath    string  // Path to the class names file, one per line
	InputSize     int     // Square model input size (default: 640)
	ConfThreshold float64 // Minimum candidate score (default: 0.25)
	NMSThreshold  float64 // IoU threshold for per-model NMS (default: 0.45)
	NumThreads    int     // Number of CPU threads (default: 0 for auto)
	LibraryPath   string  // ONNX Runtime shared library override
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		InputSize:     640,
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
		NumThreads:    0,
	}
}

func validateConfig(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("detector: model path is required")
	}
	if cfg.LabelsPath == "" {
		return errors.New("detector: labels path is required")
	}
	if cfg.InputSize <= 0 || cfg.InputSize%32 != 0 {
		return fmt.Errorf("detector: input size %d must be a positive multiple of 32", cfg.InputSize)
	}
	if cfg.ConfThreshold < 0 || cfg.ConfThreshold > 1 {
		return fmt.Errorf("detector: confidence threshold %.2f out of range", cfg.ConfThreshold)
	}
	if cfg.NMSThreshold <= 0 || cfg.NMSThreshold > 1 {
		return fmt.Errorf("detector: NMS threshold %.2f out of range", cfg.NMSThreshold)
	}
	return nil
}

func validateModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("detector: model file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("detector: model path %s is a directory", path)
	}
	return nil
}
