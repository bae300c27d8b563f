package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mealscan/mealscan/internal/detector"
	"github.com/mealscan/mealscan/internal/fusion"
	"github.com/mealscan/mealscan/internal/ktvision"
	"github.com/mealscan/mealscan/internal/ocr"
	"github.com/mealscan/mealscan/internal/pipeline"
	"github.com/mealscan/mealscan/internal/preprocess"
	"github.com/mealscan/mealscan/internal/server"
)

// ConfigurationError describes an invalid configuration value. It is only
// raised during startup validation; a process never starts with a broken
// configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Config represents the complete configuration for the mealscan application.
// It includes settings for all commands (image, serve) and supports loading
// from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Receipt text recognition collaborator
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// Vendor food classification collaborator
	Vendor VendorConfig `mapstructure:"vendor" yaml:"vendor" json:"vendor"`

	// Local detection models
	Detectors []DetectorConfig `mapstructure:"detectors" yaml:"detectors" json:"detectors"`

	// Box fusion settings
	Fusion FusionConfig `mapstructure:"fusion" yaml:"fusion" json:"fusion"`

	// Decision thresholds
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision" json:"decision"`

	// Image preprocessing settings
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// OCRConfig contains settings for the receipt text recognition service.
type OCRConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	InvokeURL  string `mapstructure:"invoke_url" yaml:"invoke_url" json:"invoke_url"`
	Secret     string `mapstructure:"secret" yaml:"secret" json:"-"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// VendorConfig contains settings for the vendor vision service.
type VendorConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	URL          string `mapstructure:"url" yaml:"url" json:"url"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id" json:"client_id"`
	ClientKey    string `mapstructure:"client_key" yaml:"client_key" json:"-"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret" json:"-"`
	Flag         string `mapstructure:"flag" yaml:"flag" json:"flag"`
	TimeoutSec   int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// DetectorConfig contains settings for one local detection model.
type DetectorConfig struct {
	Name          string  `mapstructure:"name" yaml:"name" json:"name"`
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	LabelsPath    string  `mapstructure:"labels_path" yaml:"labels_path" json:"labels_path"`
	InputSize     int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	ConfThreshold float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	NMSThreshold  float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	LibraryPath   string  `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
}

// FusionConfig contains box fusion settings.
type FusionConfig struct {
	IoUThreshold float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	ScoreFloor   float64 `mapstructure:"score_floor" yaml:"score_floor" json:"score_floor"`
	Aggregation  string  `mapstructure:"aggregation" yaml:"aggregation" json:"aggregation"`
	BaseOffset   int     `mapstructure:"base_offset" yaml:"base_offset" json:"base_offset"`
}

// DecisionConfig contains the per-source confidence floors applied when
// assembling the final result.
type DecisionConfig struct {
	VendorConfidence float64 `mapstructure:"vendor_confidence" yaml:"vendor_confidence" json:"vendor_confidence"`
	FusedVendor      float64 `mapstructure:"fused_vendor" yaml:"fused_vendor" json:"fused_vendor"`
	DetectorScore    float64 `mapstructure:"detector_score" yaml:"detector_score" json:"detector_score"`
}

// PreprocessConfig contains image preprocessing settings.
type PreprocessConfig struct {
	LandscapeMinWidth  int `mapstructure:"landscape_min_width" yaml:"landscape_min_width" json:"landscape_min_width"`
	LandscapeMinHeight int `mapstructure:"landscape_min_height" yaml:"landscape_min_height" json:"landscape_min_height"`
	PortraitMinWidth   int `mapstructure:"portrait_min_width" yaml:"portrait_min_width" json:"portrait_min_width"`
	PortraitMinHeight  int `mapstructure:"portrait_min_height" yaml:"portrait_min_height" json:"portrait_min_height"`
	JPEGQuality        int `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	ResultFile string `mapstructure:"result_file" yaml:"result_file" json:"result_file"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	fopts := fusion.DefaultOptions()
	th := fusion.DefaultThresholds()
	pre := preprocess.DefaultConstraints()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		OCR: OCRConfig{
			Enabled:    false,
			TimeoutSec: 10,
		},
		Vendor: VendorConfig{
			Enabled:    false,
			Flag:       "ALL",
			TimeoutSec: 10,
		},
		Fusion: FusionConfig{
			IoUThreshold: fopts.IoUThreshold,
			ScoreFloor:   fopts.ScoreFloor,
			Aggregation:  "max",
			BaseOffset:   fusion.DefaultBaseOffset,
		},
		Decision: DecisionConfig{
			VendorConfidence: th.VendorConfidence,
			FusedVendor:      th.FusedVendor,
			DetectorScore:    th.DetectorScore,
		},
		Preprocess: PreprocessConfig{
			LandscapeMinWidth:  pre.LandscapeMinWidth,
			LandscapeMinHeight: pre.LandscapeMinHeight,
			PortraitMinWidth:   pre.PortraitMinWidth,
			PortraitMinHeight:  pre.PortraitMinHeight,
			JPEGQuality:        pre.JPEGQuality,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return &ConfigurationError{
			Field:  "log_level",
			Reason: fmt.Sprintf("%q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")),
		}
	}

	validFormats := []string{"json", "text"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return &ConfigurationError{
			Field:  "output.format",
			Reason: fmt.Sprintf("%q must be one of: %s", c.Output.Format, strings.Join(validFormats, ", ")),
		}
	}

	if c.OCR.Enabled && (c.OCR.InvokeURL == "" || c.OCR.Secret == "") {
		return &ConfigurationError{Field: "ocr", Reason: "invoke_url and secret are required when enabled"}
	}
	if c.Vendor.Enabled {
		if c.Vendor.URL == "" {
			return &ConfigurationError{Field: "vendor.url", Reason: "required when enabled"}
		}
		if c.Vendor.ClientID == "" || c.Vendor.ClientKey == "" || c.Vendor.ClientSecret == "" {
			return &ConfigurationError{Field: "vendor", Reason: "client_id, client_key and client_secret are required when enabled"}
		}
	}

	if err := c.validateThresholds(); err != nil {
		return err
	}

	if _, err := c.aggregation(); err != nil {
		return err
	}
	if c.Fusion.BaseOffset <= 0 {
		return &ConfigurationError{Field: "fusion.base_offset", Reason: "must be positive"}
	}

	for i, d := range c.Detectors {
		if d.Name == "" {
			return &ConfigurationError{Field: fmt.Sprintf("detectors[%d].name", i), Reason: "must not be empty"}
		}
		if d.ModelPath == "" {
			return &ConfigurationError{Field: fmt.Sprintf("detectors[%d].model_path", i), Reason: "must not be empty"}
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{
			Field:  "server.port",
			Reason: fmt.Sprintf("%d must be between 1 and 65535", c.Server.Port),
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		return &ConfigurationError{Field: "server.max_upload_mb", Reason: "must be positive"}
	}
	if c.Server.TimeoutSec <= 0 {
		return &ConfigurationError{Field: "server.timeout_sec", Reason: "must be positive"}
	}

	return nil
}

func (c *Config) validateThresholds() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"fusion.iou_threshold", c.Fusion.IoUThreshold},
		{"fusion.score_floor", c.Fusion.ScoreFloor},
		{"decision.vendor_confidence", c.Decision.VendorConfidence},
		{"decision.fused_vendor", c.Decision.FusedVendor},
		{"decision.detector_score", c.Decision.DetectorScore},
	}
	for _, ck := range checks {
		if ck.value < 0.0 || ck.value > 1.0 {
			return &ConfigurationError{
				Field:  ck.name,
				Reason: fmt.Sprintf("%.2f must be between 0.0 and 1.0", ck.value),
			}
		}
	}
	return nil
}

func (c *Config) aggregation() (fusion.Aggregation, error) {
	switch c.Fusion.Aggregation {
	case "", "max":
		return fusion.AggregateMax, nil
	case "weighted_mean":
		return fusion.AggregateWeightedMean, nil
	default:
		return fusion.AggregateMax, &ConfigurationError{
			Field:  "fusion.aggregation",
			Reason: fmt.Sprintf("%q must be one of: max, weighted_mean", c.Fusion.Aggregation),
		}
	}
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	agg, _ := c.aggregation()
	return pipeline.Config{
		BaseOffset: c.Fusion.BaseOffset,
		Fusion: fusion.Options{
			IoUThreshold: c.Fusion.IoUThreshold,
			ScoreFloor:   c.Fusion.ScoreFloor,
			Aggregation:  agg,
		},
		Thresholds: fusion.Thresholds{
			VendorConfidence: c.Decision.VendorConfidence,
			FusedVendor:      c.Decision.FusedVendor,
			DetectorScore:    c.Decision.DetectorScore,
		},
		Preprocess: preprocess.Constraints{
			LandscapeMinWidth:  c.Preprocess.LandscapeMinWidth,
			LandscapeMinHeight: c.Preprocess.LandscapeMinHeight,
			PortraitMinWidth:   c.Preprocess.PortraitMinWidth,
			PortraitMinHeight:  c.Preprocess.PortraitMinHeight,
			JPEGQuality:        c.Preprocess.JPEGQuality,
		},
	}
}

// ToOCRConfig converts the config to the OCR client configuration format.
func (c *Config) ToOCRConfig() ocr.Config {
	return ocr.Config{
		InvokeURL: c.OCR.InvokeURL,
		Secret:    c.OCR.Secret,
		Timeout:   time.Duration(c.OCR.TimeoutSec) * time.Second,
	}
}

// ToVendorConfig converts the config to the vendor client configuration format.
func (c *Config) ToVendorConfig() ktvision.Config {
	return ktvision.Config{
		URL:          c.Vendor.URL,
		ClientID:     c.Vendor.ClientID,
		ClientKey:    c.Vendor.ClientKey,
		ClientSecret: c.Vendor.ClientSecret,
		Flag:         c.Vendor.Flag,
		Timeout:      time.Duration(c.Vendor.TimeoutSec) * time.Second,
	}
}

// ToDetectorConfigs converts the config to detector configuration values.
func (c *Config) ToDetectorConfigs() []detector.Config {
	configs := make([]detector.Config, 0, len(c.Detectors))
	for _, d := range c.Detectors {
		cfg := detector.DefaultConfig()
		cfg.Name = d.Name
		cfg.ModelPath = d.ModelPath
		cfg.LabelsPath = d.LabelsPath
		if d.InputSize > 0 {
			cfg.InputSize = d.InputSize
		}
		if d.ConfThreshold > 0 {
			cfg.ConfThreshold = d.ConfThreshold
		}
		if d.NMSThreshold > 0 {
			cfg.NMSThreshold = d.NMSThreshold
		}
		if d.NumThreads > 0 {
			cfg.NumThreads = d.NumThreads
		}
		cfg.LibraryPath = d.LibraryPath
		configs = append(configs, cfg)
	}
	return configs
}

// ToServerConfig converts the config to the server configuration format.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		ResultFile:  c.Output.ResultFile,
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
