package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch generates embeddings for texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// Prober is implemented by providers backed by a service that can be health-checked.
type Prober interface {
	IsAvailable(ctx context.Context) error
}

// embedSerially implements EmbedBatch for providers that embed one text per request.
func embedSerially(ctx context.Context, p Provider, texts []string) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))
	for _, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}
