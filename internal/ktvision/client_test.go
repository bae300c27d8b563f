package ktvision

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifyResponse = `{
	"code": "0000",
	"data": [{
		"region_1": {
			"prediction_top1": {"food_name": "Rice", "confidence": 0.72, "calorie": 310},
			"bounding_box": {"left_top": {"x": 400, "y": 100}, "right_bottom": {"x": 700, "y": 350}}
		},
		"region_0": {
			"prediction_top1": {"food_name": "Bulgogi", "confidence": 0.88},
			"bounding_box": {"left_top": {"x": 10, "y": 20}, "right_bottom": {"x": 300, "y": 250}}
		}
	}]
}`

func testClient(t *testing.T, url string) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(Config{
		URL:          url,
		ClientID:     "client-id",
		ClientKey:    "client-key",
		ClientSecret: "client-secret",
	})
	require.NoError(t, err)
	return client
}

func TestClassifyParsesRegionsSorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.JSONEq(t, `{"flag":"ALL"}`, r.FormValue("metadata"))

		file, _, err := r.FormFile("media")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()

		_, _ = w.Write([]byte(classifyResponse))
	}))
	defer srv.Close()

	regions, err := testClient(t, srv.URL).Classify(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "region_0", regions[0].ID)
	assert.Equal(t, "Bulgogi", regions[0].FoodName)
	assert.InDelta(t, 0.88, regions[0].Confidence, 1e-9)
	assert.True(t, regions[0].HasBox)
	assert.Equal(t, 10.0, regions[0].Left)
	assert.Equal(t, 250.0, regions[0].Bottom)

	assert.Equal(t, "region_1", regions[1].ID)
	assert.EqualValues(t, 310, regions[1].Payload["calorie"])
}

func TestClassifySignsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamp := r.Header.Get("x-auth-timestamp")
		assert.Len(t, timestamp, 17) // yyyymmddHHMMSS + millis
		assert.Equal(t, "client-key", r.Header.Get("x-client-key"))

		mac := hmac.New(sha256.New, []byte("client-secret"))
		mac.Write([]byte("client-id:" + timestamp))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("x-client-signature"))

		_, _ = w.Write([]byte(`{"code":"0000","data":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Classify(context.Background(), []byte("img"))
	require.NoError(t, err)
}

func TestClassifyEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0000","data":[]}`))
	}))
	defer srv.Close()

	regions, err := testClient(t, srv.URL).Classify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestClassifyNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Classify(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestClassifyMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Classify(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(Config{URL: "http://x", ClientID: "a", ClientKey: "b"})
	require.Error(t, err)
	_, err = NewHTTPClient(Config{ClientID: "a", ClientKey: "b", ClientSecret: "c"})
	require.Error(t, err)
}
