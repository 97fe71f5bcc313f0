// Third-party image host client for book cover uploads
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/bookhaven/haven/internal/shared"
)

// ImageHost uploads cover images to the external image-hosting service and
// returns hosted URLs. Treated as an opaque collaborator; only the upload
// endpoint and API key are known.
type ImageHost struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
}

// NewImageHost creates an image host client.
func NewImageHost(uploadURL, apiKey string, client *http.Client) *ImageHost {
	if client == nil {
		client = http.DefaultClient
	}
	return &ImageHost{
		uploadURL:  uploadURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

// uploadResponse is the host's wire shape for a completed upload.
type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the image as a multipart form and returns the hosted URL.
func (h *ImageHost) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	if h.apiKey == "" {
		return "", fmt.Errorf("%w: image host API key not configured", shared.ErrInvalidConfig)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	uploadURL := fmt.Sprintf("%s?key=%s", h.uploadURL, h.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", shared.ErrUploadFailed, err)
	}

	if !result.Success {
		detail := result.Error.Message
		if detail == "" {
			detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", shared.ErrUploadFailed, detail)
	}

	return result.Data.URL, nil
}
