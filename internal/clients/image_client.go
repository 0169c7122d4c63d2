package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyImage   = errors.New("image source is empty")
	ErrInvalidImage = errors.New("image data URI is invalid")
)

// ImageClient uploads product images to the document service and removes them again
type ImageClient struct {
	baseURL    string
	bucket     string
	httpClient *http.Client
	logger     *logrus.Entry
}

// uploadResponse mirrors the document service upload envelope
type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewImageClient(baseURL, bucket string, logger *logrus.Logger) *ImageClient {
	if bucket == "" {
		bucket = "product-images"
	}
	return &ImageClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.WithField("component", "image-client"),
	}
}

// Upload hosts the image and returns its public URL. source is either a
// base64 data URI, whose bytes are sent as the file part, or a remote URL
// that the document service fetches itself.
func (c *ImageClient) Upload(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrEmptyImage
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("bucket", c.bucket)
	_ = writer.WriteField("isPublic", "true")

	if strings.HasPrefix(source, "data:") {
		data, ext, err := decodeDataURI(source)
		if err != nil {
			return "", err
		}
		part, err := writer.CreateFormFile("file", uuid.New().String()+ext)
		if err != nil {
			return "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return "", fmt.Errorf("failed to write image: %w", err)
		}
	} else {
		_ = writer.WriteField("url", source)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to communicate with document service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !result.Success || result.Data.URL == "" {
		msg := string(respBody)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("image upload failed with status %d: %s", resp.StatusCode, msg)
	}

	c.logger.WithField("url", result.Data.URL).Debug("Image uploaded")
	return result.Data.URL, nil
}

// Delete removes a hosted image. A 404 from the document service counts as success.
func (c *ImageClient) Delete(ctx context.Context, imageURL string) error {
	if imageURL == "" {
		return nil
	}

	endpoint := c.baseURL + "/api/v1/documents?" + url.Values{"url": {imageURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to communicate with document service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("image delete failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// decodeDataURI handles data:<mime>;base64,<payload>
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrInvalidImage
	}
	mediaType := strings.TrimSuffix(header, ";base64")
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ext := ""
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return data, ext, nil
}
