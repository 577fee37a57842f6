package topics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultSpacyModel is the spaCy pipeline requested from the service.
	DefaultSpacyModel = "en_core_web_sm"

	// DefaultTimeout bounds a chunking request.
	DefaultTimeout = 10 * time.Second
)

// DisplaCyChunker obtains noun phrases from a spaCy displaCy-style
// dependency service. With collapse_phrases set, each noun phrase comes
// back as a single word tagged NOUN or PROPN.
type DisplaCyChunker struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewDisplaCyChunker creates a chunker for the service at baseURL.
func NewDisplaCyChunker(baseURL string) *DisplaCyChunker {
	return &DisplaCyChunker{
		baseURL: baseURL,
		model:   DefaultSpacyModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// NounChunks returns the collapsed noun phrases found in text.
func (c *DisplaCyChunker) NounChunks(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(depRequest{
		Text:            text,
		Model:           c.model,
		CollapsePhrases: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dep", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spacy service returned status %d", resp.StatusCode)
	}

	var parsed depResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var chunks []string
	for _, w := range parsed.Words {
		if w.Tag == "NOUN" || w.Tag == "PROPN" {
			chunks = append(chunks, w.Text)
		}
	}
	return chunks, nil
}

type depRequest struct {
	Text            string `json:"text"`
	Model           string `json:"model"`
	CollapsePhrases int    `json:"collapse_phrases,omitempty"`
}

type depResponse struct {
	Words []depWord `json:"words"`
}

type depWord struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}
