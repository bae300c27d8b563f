package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealscan/mealscan/internal/fusion"
	"github.com/mealscan/mealscan/internal/pipeline"
	"github.com/mealscan/mealscan/internal/testutil"
)

type stubPipeline struct {
	record fusion.Record
	err    error
	calls  int
}

func (p *stubPipeline) ProcessImage(ctx context.Context, data []byte) (fusion.Record, error) {
	p.calls++
	if p.err != nil {
		return fusion.Record{}, p.err
	}
	return p.record, nil
}

func (p *stubPipeline) Close() error { return nil }

func newTestServer(pl pipelineInterface) *Server {
	return NewServer(Config{CORSOrigin: "*", MaxUploadMB: 10, TimeoutSec: 5}, pl)
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "meal.jpg")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		checkResponse  bool
	}{
		{
			name:           "GET request success",
			method:         "GET",
			expectedStatus: http.StatusOK,
			checkResponse:  true,
		},
		{
			name:           "POST request not allowed",
			method:         "POST",
			expectedStatus: http.StatusMethodNotAllowed,
			checkResponse:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.checkResponse {
				var response HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, "healthy", response.Status)
				assert.NotEmpty(t, response.Time)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_PredictHandler_Success(t *testing.T) {
	pl := &stubPipeline{
		record: fusion.Record{
			InferResult: fusion.VisionFused,
			Predict: fusion.Predict{
				FoodNames:   []string{"Bulgogi", "Rice"},
				KTFoodsInfo: map[string]map[string]any{"region_0": {"food_name": "Bulgogi"}},
			},
		},
	}
	server := newTestServer(pl)

	body, contentType := multipartImage(t, "food_image", testutil.JPEGBytes(t, 64, 48))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, pl.calls)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.JSONEq(t, "1", string(got["inferResult"]))

	var predict fusion.Predict
	require.NoError(t, json.Unmarshal(got["predict"], &predict))
	assert.Equal(t, []string{"Bulgogi", "Rice"}, predict.FoodNames)
	assert.Contains(t, predict.KTFoodsInfo, "region_0")
}

func TestServer_PredictHandler_MethodValidation(t *testing.T) {
	server := newTestServer(&stubPipeline{})

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_PredictHandler_MissingFile(t *testing.T) {
	server := newTestServer(&stubPipeline{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no image here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "food_image")
}

func TestServer_PredictHandler_WrongFieldName(t *testing.T) {
	server := newTestServer(&stubPipeline{})

	body, contentType := multipartImage(t, "image", testutil.JPEGBytes(t, 32, 32))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_PredictHandler_PipelineError(t *testing.T) {
	pl := &stubPipeline{err: errors.New("decode failed")}
	server := newTestServer(pl)

	body, contentType := multipartImage(t, "food_image", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "prediction failed")
}

func TestServer_PredictHandler_UndecodableImage(t *testing.T) {
	pl := &stubPipeline{err: &pipeline.UndecodableImageError{Err: errors.New("image: unknown format")}}
	server := newTestServer(pl)

	body, contentType := multipartImage(t, "food_image", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "invalid image format")
}

func TestServer_PredictHandler_NoPipeline(t *testing.T) {
	server := newTestServer(nil)

	body, contentType := multipartImage(t, "food_image", testutil.JPEGBytes(t, 32, 32))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_PredictHandler_ResultFile(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.json")
	pl := &stubPipeline{
		record: fusion.Record{
			InferResult: fusion.TextOnly,
			Predict: fusion.Predict{
				FoodNames:   []string{"Kimchi Stew"},
				KTFoodsInfo: map[string]map[string]any{},
			},
		},
	}
	server := NewServer(Config{CORSOrigin: "*", MaxUploadMB: 10, ResultFile: resultFile}, pl)

	body, contentType := multipartImage(t, "food_image", testutil.JPEGBytes(t, 64, 64))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	server.predictHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)

	var saved fusion.Record
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, fusion.TextOnly, saved.InferResult)
	assert.Equal(t, []string{"Kimchi Stew"}, saved.Predict.FoodNames)
}
