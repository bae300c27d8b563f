package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServer_CORSMiddleware(t *testing.T) {
	server := NewServer(Config{CORSOrigin: "https://app.example.com"}, nil)

	var called bool
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServer_CORSMiddleware_Preflight(t *testing.T) {
	server := NewServer(Config{CORSOrigin: "*"}, nil)

	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for preflight requests")
	})

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestServer_SetupRoutes(t *testing.T) {
	server := newTestServer(nil)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mealscan_")
}
