package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.model != DefaultOllamaModel {
		t.Errorf("model = %s, want %s", provider.model, DefaultOllamaModel)
	}
	if provider.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, DefaultDimensions)
	}
	if provider.client == nil {
		t.Error("client should not be nil")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	customURL := "http://custom:8080"
	customModel := "custom-model"
	customDimensions := 384
	customTimeout := 60 * time.Second

	provider := NewOllamaProvider(
		WithBaseURL(customURL),
		WithModel(customModel),
		WithDimensions(customDimensions),
		WithTimeout(customTimeout),
	)

	if provider.baseURL != customURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, customURL)
	}
	if provider.ModelName() != customModel {
		t.Errorf("ModelName() = %s, want %s", provider.ModelName(), customModel)
	}
	if provider.Dimensions() != customDimensions {
		t.Errorf("Dimensions() = %d, want %d", provider.Dimensions(), customDimensions)
	}
	if provider.client.Timeout != customTimeout {
		t.Errorf("timeout = %v, want %v", provider.client.Timeout, customTimeout)
	}
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{float32(len(req.Prompt)), 0, 0}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(3))
	embs, err := p.EmbedBatch(context.Background(), []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(embs) != 2 || embs[0].Vector[0] != 1 || embs[1].Vector[0] != 3 {
		t.Errorf("EmbedBatch() = %v, want order preserved", embs)
	}
	if len(prompts) != 2 {
		t.Errorf("requests = %d, want 2", len(prompts))
	}
}

func TestOllamaProvider_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(3))
	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Embed() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestFormatErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple error message",
			input:    "error occurred",
			expected: "error occurred",
		},
		{
			name:     "empty body",
			input:    "",
			expected: "",
		},
		{
			name:     "json error",
			input:    `{"error": "not found"}`,
			expected: `{"error": "not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatErrorBody(strings.NewReader(tt.input))
			if result != tt.expected {
				t.Errorf("formatErrorBody() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestProvidersImplementInterfaces(t *testing.T) {
	var _ Provider = (*OllamaProvider)(nil)
	var _ Provider = (*TEIProvider)(nil)
	var _ Provider = (*RandomProvider)(nil)
	var _ Provider = (*CachedProvider)(nil)
	var _ Prober = (*OllamaProvider)(nil)
	var _ Prober = (*TEIProvider)(nil)
}
