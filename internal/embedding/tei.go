package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// DefaultTEIURL is the default text-embeddings-inference endpoint.
	DefaultTEIURL = "http://localhost:8080"

	// DefaultTEIModel is the scientific-document model served by TEI.
	DefaultTEIModel = "sentence-transformers/allenai-specter"

	apiPathEmbed  = "/embed"
	apiPathHealth = "/health"
)

// TEIProvider generates embeddings with a HuggingFace text-embeddings-inference server.
type TEIProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewTEIProvider creates a provider for a TEI server hosting allenai-specter.
func NewTEIProvider(opts ...Option) *TEIProvider {
	s := newSettings(DefaultTEIURL, DefaultTEIModel, opts)
	return &TEIProvider{
		baseURL:    s.baseURL,
		model:      s.model,
		dimensions: s.dimensions,
		client:     &http.Client{Timeout: s.timeout},
	}
}

// Embed generates an embedding for a single text.
func (p *TEIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embs[0], nil
}

// EmbedBatch embeds texts in one request.
func (p *TEIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(teiEmbedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPathEmbed, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tei returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("tei returned %d vectors for %d inputs", len(vectors), len(texts))
	}

	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		if len(v) != p.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), p.dimensions)
		}
		out[i] = Embedding{Vector: v}
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *TEIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *TEIProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable checks that the TEI server is up.
func (p *TEIProvider) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathHealth, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("tei is not running: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tei health returned status %d", resp.StatusCode)
	}
	return nil
}

// teiEmbedRequest is the request body for the TEI /embed endpoint.
type teiEmbedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}
