package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-touch/internal/frame"
)

func testFrame(t *testing.T) frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := range 48 {
		for x := range 64 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return frame.Frame{Seq: 1, Data: buf.Bytes()}
}

// setupEmbeddingServer mocks the embedding server with a fixed health response and vector
func setupEmbeddingServer(t *testing.T, health healthResponse, vector []float32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})
	mux.HandleFunc("/embed/image", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil || cfg.Width != 224 || cfg.Height != 224 {
			http.Error(w, "expected 224x224 image", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(embeddingResponse{Dim: len(vector), Embedding: vector, Model: health.Model})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_LoadAndEmbed(t *testing.T) {
	vector := []float32{0.1, 0.2, 0.3, 0.4}
	server := setupEmbeddingServer(t, healthResponse{Status: "ok", Model: "mobilenet_v2", Dim: 4}, vector)

	client := NewClient(server.URL, 4, 224)
	if err := client.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if client.Model() != "mobilenet_v2" {
		t.Errorf("expected model mobilenet_v2, got %q", client.Model())
	}

	emb, err := client.Embed(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(emb) != 4 || emb[3] != 0.4 {
		t.Errorf("unexpected embedding %v", emb)
	}
}

func TestClient_EmbedBeforeLoad(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 4, 224)
	if _, err := client.Embed(context.Background(), testFrame(t)); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestClient_LoadFailures(t *testing.T) {
	t.Run("server down", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		err := NewClient(url, 4, 224).Load(context.Background())
		if !errors.Is(err, ErrModelLoad) {
			t.Errorf("expected ErrModelLoad, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model weights missing", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		err := NewClient(server.URL, 4, 224).Load(context.Background())
		if !errors.Is(err, ErrModelLoad) {
			t.Errorf("expected ErrModelLoad, got %v", err)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		server := setupEmbeddingServer(t, healthResponse{Status: "ok", Dim: 512}, nil)
		err := NewClient(server.URL, 1024, 224).Load(context.Background())
		if !errors.Is(err, ErrModelLoad) {
			t.Errorf("expected ErrModelLoad, got %v", err)
		}
	})
}

func TestClient_AdoptsServerDimension(t *testing.T) {
	server := setupEmbeddingServer(t, healthResponse{Status: "ok", Dim: 3}, []float32{1, 2})
	client := NewClient(server.URL, 0, 224)
	if err := client.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if client.Dim() != 3 {
		t.Errorf("expected adopted dim 3, got %d", client.Dim())
	}
	// The server returns 2 values while reporting 3.
	if _, err := client.Embed(context.Background(), testFrame(t)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
		{"empty", []float32{}, []float32{}, 2},
		{"rounding above one", []float32{0.1, 0.2, 0.3}, []float32{0.1, 0.2, 0.3}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CosineDistance(tc.a, tc.b)
			if math.Abs(result-tc.expected) > 1e-6 {
				t.Errorf("CosineDistance(%v, %v) = %f; want %f", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}
