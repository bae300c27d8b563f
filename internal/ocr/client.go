// Package ocr calls the receipt text recognition API. The decision policy
// treats its output as ground truth over visual inference, so this client
// runs first in every request.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client recognizes receipt/menu text in an image.
type Client interface {
	Recognize(ctx context.Context, image []byte) (*Result, error)
}

// Config holds the connection settings for the receipt OCR API.
type Config struct {
	InvokeURL string
	Secret    string
	Timeout   time.Duration
}

// HTTPClient is the production Client backed by the receipt OCR HTTP API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient validates the configuration and returns a ready client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.InvokeURL == "" {
		return nil, errors.New("ocr: invoke URL is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("ocr: secret is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Recognize submits the image and extracts the recognized item texts.
func (c *HTTPClient) Recognize(ctx context.Context, image []byte) (*Result, error) {
	body, contentType, err := buildRequestBody(image)
	if err != nil {
		return nil, fmt.Errorf("ocr: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InvokeURL, body)
	if err != nil {
		return nil, fmt.Errorf("ocr: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-OCR-SECRET", c.cfg.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ocr: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr: read response: %w", err)
	}
	return parseResponse(data)
}

// buildRequestBody assembles the multipart payload: a JSON message part
// describing the request plus the image file part.
func buildRequestBody(image []byte) (*bytes.Buffer, string, error) {
	message := apiRequest{
		Images:    []apiRequestImage{{Format: "jpg", Name: "demo"}},
		RequestID: uuid.NewString(),
		Version:   "V2",
		Timestamp: time.Now().UnixMilli(),
	}
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("message", string(messageJSON)); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", "image.jpg")
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

func parseResponse(data []byte) (*Result, error) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ocr: malformed response: %w", err)
	}
	if len(resp.Images) == 0 {
		return nil, errors.New("ocr: response contains no images")
	}

	img := resp.Images[0]
	result := &Result{Status: img.InferResult}
	if img.InferResult == statusError || img.Receipt == nil {
		return result, nil
	}

	for _, sub := range img.Receipt.Result.SubResults {
		for _, item := range sub.Items {
			if item.Name.Text != "" {
				result.Items = append(result.Items, item.Name.Text)
			}
		}
	}
	return result, nil
}
