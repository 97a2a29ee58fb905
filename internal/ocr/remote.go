/**
 * Remote OCR Engine - HTTP detection service client
 *
 * Talks to a PaddleOCR-style recognition service over JSON/HTTP. The raw
 * detection payload is handed to the adapter, which tolerates the three
 * payload shapes the service has produced across versions.
 */

package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/transcript-worker/internal/logging"
)

// RemoteEngine detects text via an HTTP recognition service.
type RemoteEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

type detectRequest struct {
	Image  string `json:"image"`  // Base64 encoded PNG
	Format string `json:"format"` // Always "base64"
}

// NewRemoteEngine creates a client for the recognition service at baseURL.
func NewRemoteEngine(baseURL string) *RemoteEngine {
	return &RemoteEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.NewLogger("RemoteOCR"),
	}
}

// Name identifies the engine in logs and job records.
func (e *RemoteEngine) Name() string {
	return "remote"
}

// Detect sends the image to the recognition service and normalizes its
// payload into TextBoxes.
func (e *RemoteEngine) Detect(ctx context.Context, img image.Image) ([]TextBox, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	reqBody, err := json.Marshal(&detectRequest{
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Format: "base64",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/ocr/detect", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "transcript-worker")
	httpReq.Header.Set("X-Request-ID", fmt.Sprintf("ocr-%s", uuid.New().String()))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to OCR service failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OCR service returned error status %d: %s", resp.StatusCode, string(body))
	}

	boxes, err := ParseDetections(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detection payload: %w", err)
	}

	e.logger.Info("Detection complete", "boxes", len(boxes), "payloadBytes", len(body))
	return boxes, nil
}

// HealthCheck verifies the recognition service is reachable.
func (e *RemoteEngine) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/health", e.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
