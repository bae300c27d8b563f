// Package ktvision calls the vendor food classification API. The vendor is
// treated as one more detector by the fusion engine: each reported region
// carries a bounding box and a top prediction.
package ktvision

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Client classifies food regions in an image.
type Client interface {
	Classify(ctx context.Context, image []byte) ([]Region, error)
}

// Config holds the vendor API credentials and endpoint.
type Config struct {
	URL          string
	ClientID     string
	ClientKey    string
	ClientSecret string
	Flag         string // ALL, UNSELECTED, CALORIE, or NATRIUM
	Timeout      time.Duration
}

// HTTPClient is the production Client backed by the vendor HTTP API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
	zone *time.Location
}

// NewHTTPClient validates the configuration and returns a ready client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("ktvision: URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientKey == "" || cfg.ClientSecret == "" {
		return nil, errors.New("ktvision: client id, key, and secret are required")
	}
	if cfg.Flag == "" {
		cfg.Flag = "ALL"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	// The vendor validates the auth timestamp against Korean local time.
	zone, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		zone = time.FixedZone("KST", 9*60*60)
	}

	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
		zone: zone,
	}, nil
}

// Classify submits the image and returns the vendor's regions sorted by id.
func (c *HTTPClient) Classify(ctx context.Context, image []byte) ([]Region, error) {
	timestamp := c.now().In(c.zone).Format("20060102150405.000")
	timestamp = strings.ReplaceAll(timestamp, ".", "")

	body, contentType, err := c.buildRequestBody(image)
	if err != nil {
		return nil, fmt.Errorf("ktvision: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("ktvision: create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-client-key", c.cfg.ClientKey)
	req.Header.Set("x-client-signature", sign(c.cfg.ClientID, c.cfg.ClientSecret, timestamp))
	req.Header.Set("x-auth-timestamp", timestamp)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ktvision: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ktvision: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ktvision: read response: %w", err)
	}
	return parseResponse(data)
}

// sign computes the HMAC-SHA256 signature of "clientID:timestamp".
func sign(clientID, secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(clientID + ":" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildRequestBody assembles the multipart payload: a metadata JSON part and
// the media image part.
func (c *HTTPClient) buildRequestBody(image []byte) (*bytes.Buffer, string, error) {
	metadata, err := json.Marshal(map[string]string{"flag": c.cfg.Flag})
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("metadata", string(metadata)); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("media", "image.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func parseResponse(data []byte) ([]Region, error) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ktvision: malformed response: %w", err)
	}
	if len(resp.Data) == 0 {
		return []Region{}, nil
	}

	regions := make([]Region, 0, len(resp.Data[0]))
	for id, raw := range resp.Data[0] {
		region, err := parseRegion(id, raw)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	// Map iteration order is random; region ids are stable.
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions, nil
}

func parseRegion(id string, raw apiRegion) (Region, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw.PredictionTop1, &payload); err != nil {
		return Region{}, fmt.Errorf("ktvision: malformed prediction for %s: %w", id, err)
	}

	region := Region{ID: id, Payload: payload}
	if name, ok := payload["food_name"].(string); ok {
		region.FoodName = name
	}
	if conf, ok := payload["confidence"].(float64); ok {
		region.Confidence = conf
	}
	if raw.BoundingBox != nil {
		region.HasBox = true
		region.Left = raw.BoundingBox.LeftTop.X
		region.Top = raw.BoundingBox.LeftTop.Y
		region.Right = raw.BoundingBox.RightBottom.X
		region.Bottom = raw.BoundingBox.RightBottom.Y
	}
	return region, nil
}
