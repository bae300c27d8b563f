package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealscan/mealscan/internal/fusion"
)

// pipelineInterface defines the methods needed by the server from a pipeline.
type pipelineInterface interface {
	ProcessImage(ctx context.Context, data []byte) (fusion.Record, error)
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    pipelineInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	resultFile  string
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	ResultFile  string
}

// Response types for API endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new prediction server around an already built pipeline.
func NewServer(config Config, pl pipelineInterface) *Server {
	return &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		resultFile:  config.ResultFile,
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/predict", s.corsMiddleware(s.predictHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
