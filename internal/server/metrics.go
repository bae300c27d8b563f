package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Prediction metrics
	predictRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealscan_predict_requests_total",
			Help: "Total number of prediction requests",
		},
		[]string{"status"}, // status: success, error
	)

	predictDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mealscan_predict_duration_seconds",
			Help:    "End-to-end prediction duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25},
		},
	)

	foodsDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealscan_foods_detected",
			Help:    "Number of food names in a prediction result",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"mode"}, // mode: text, vision
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mealscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)
)
