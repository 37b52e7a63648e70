package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/frame"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Client computes frame embeddings using the embedding server.
type Client struct {
	baseURL   string
	dim       int
	inputSize int
	client    *http.Client

	mu     sync.RWMutex
	loaded bool
	model  string
}

var _ Extractor = (*Client)(nil)

// NewClient creates a new embedding client. A zero dim accepts whatever
// dimension the server reports.
func NewClient(baseURL string, dim, inputSize int) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if inputSize <= 0 {
		inputSize = constants.DefaultInputSize
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		dim:       dim,
		inputSize: inputSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// healthResponse represents the response of the server health endpoint
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Dim    int    `json:"dim"`
}

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Load checks that the server is up and serving a model with the expected dimension.
func (c *Client) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrModelLoad, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrModelLoad, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: server returned status %d: %s", ErrModelLoad, resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("%w: failed to parse health response: %v", ErrModelLoad, err)
	}
	if health.Status != "" && health.Status != "ok" {
		return fmt.Errorf("%w: server status %q", ErrModelLoad, health.Status)
	}
	if c.dim > 0 && health.Dim > 0 && health.Dim != c.dim {
		return fmt.Errorf("%w: model dimension %d, expected %d", ErrModelLoad, health.Dim, c.dim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.model = health.Model
	if c.dim == 0 {
		c.dim = health.Dim
	}
	return nil
}

// postMultipartImage posts the image as the "file" part of a multipart form.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Embed resizes the frame to the model input size and computes its embedding.
func (c *Client) Embed(ctx context.Context, f frame.Frame) (Embedding, error) {
	c.mu.RLock()
	loaded, dim := c.loaded, c.dim
	c.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	input, err := frame.Resize(f.Data, c.inputSize)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", f.Seq, err)
	}

	body, err := c.postMultipartImage(ctx, "/embed/image", input)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if dim > 0 && len(embResp.Embedding) != dim {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(embResp.Embedding), dim)
	}

	return Embedding(embResp.Embedding), nil
}

// Model returns the model name reported by the server, empty before Load.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Dim returns the embedding dimension.
func (c *Client) Dim() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dim
}
