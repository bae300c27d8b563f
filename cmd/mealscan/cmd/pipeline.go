package cmd

import (
	"fmt"
	"log/slog"

	"github.com/mealscan/mealscan/internal/config"
	"github.com/mealscan/mealscan/internal/detector"
	"github.com/mealscan/mealscan/internal/ktvision"
	"github.com/mealscan/mealscan/internal/ocr"
	"github.com/mealscan/mealscan/internal/pipeline"
)

// buildPipeline assembles the prediction pipeline from configuration.
// Disabled collaborators are left out; the pipeline degrades gracefully
// around missing sources.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	var ocrClient ocr.Client
	if cfg.OCR.Enabled {
		c, err := ocr.NewHTTPClient(cfg.ToOCRConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create OCR client: %w", err)
		}
		ocrClient = c
	}

	var vendorClient ktvision.Client
	if cfg.Vendor.Enabled {
		c, err := ktvision.NewHTTPClient(cfg.ToVendorConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create vendor client: %w", err)
		}
		vendorClient = c
	}

	models := make([]detector.Model, 0, len(cfg.Detectors))
	for _, dcfg := range cfg.ToDetectorConfigs() {
		d, err := detector.NewDetector(dcfg)
		if err != nil {
			for _, m := range models {
				_ = m.Close()
			}
			return nil, fmt.Errorf("failed to load detector %s: %w", dcfg.Name, err)
		}
		slog.Info("Loaded detection model", "name", dcfg.Name, "path", dcfg.ModelPath)
		models = append(models, d)
	}

	return pipeline.New(cfg.ToPipelineConfig(), ocrClient, vendorClient, models), nil
}
