package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mealscan/mealscan/internal/fusion"
	"github.com/mealscan/mealscan/internal/pipeline"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// predictHandler runs the prediction pipeline on an uploaded food image.
func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := s.parsePredictRequest(w, r)
	if !ok {
		predictRequestsTotal.WithLabelValues("error").Inc()
		return // error already written
	}

	if s.pipeline == nil {
		s.writeErrorResponse(w, "prediction pipeline not initialized", http.StatusServiceUnavailable)
		predictRequestsTotal.WithLabelValues("error").Inc()
		return
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	record, err := s.pipeline.ProcessImage(ctx, data)
	duration := time.Since(start)

	if err != nil {
		predictRequestsTotal.WithLabelValues("error").Inc()
		var uerr *pipeline.UndecodableImageError
		if errors.As(err, &uerr) {
			s.writeErrorResponse(w, "invalid image format", http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("prediction failed: %v", err), http.StatusInternalServerError)
		return
	}

	predictRequestsTotal.WithLabelValues("success").Inc()
	predictDuration.Observe(duration.Seconds())

	mode := "vision"
	if record.InferResult == fusion.TextOnly {
		mode = "text"
	}
	foodsDetected.WithLabelValues(mode).Observe(float64(len(record.Predict.FoodNames)))

	s.writeResultFile(record)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Failed to encode prediction response", "error", err)
	}
}

// parsePredictRequest extracts the uploaded image bytes from a multipart form.
// On failure the error response has already been written.
func (s *Server) parsePredictRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "failed to parse form data", http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("food_image")
	if err != nil {
		s.writeErrorResponse(w, "no food_image file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "file too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}

	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "failed to read image data", http.StatusInternalServerError)
		return nil, false
	}

	return data, true
}

// writeResultFile persists the latest prediction for auditing. Failures are
// logged and do not affect the HTTP response.
func (s *Server) writeResultFile(record fusion.Record) {
	if s.resultFile == "" {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		slog.Warn("Failed to marshal prediction for result file", "error", err)
		return
	}
	if err := os.WriteFile(s.resultFile, data, 0o644); err != nil {
		slog.Warn("Failed to write result file", "path", s.resultFile, "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
