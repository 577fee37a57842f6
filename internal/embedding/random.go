package embedding

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomModelName identifies vectors produced by RandomProvider.
const RandomModelName = "random-fallback"

// RandomProvider returns uniformly random vectors. It stands in for a real
// model when none can be reached, so the pipeline still completes.
type RandomProvider struct {
	dimensions int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomProvider creates a fallback provider. A nil rng is seeded from the clock.
func NewRandomProvider(dimensions int, rng *rand.Rand) *RandomProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomProvider{dimensions: dimensions, rng: rng}
}

// Embed returns a random vector with components in [0, 1).
func (p *RandomProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next(), nil
}

// EmbedBatch returns one random vector per text.
func (p *RandomProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Embedding, len(texts))
	for i := range texts {
		out[i] = p.next()
	}
	return out, nil
}

func (p *RandomProvider) next() Embedding {
	v := make([]float32, p.dimensions)
	for i := range v {
		v[i] = p.rng.Float32()
	}
	return Embedding{Vector: v}
}

// ModelName returns RandomModelName.
func (p *RandomProvider) ModelName() string {
	return RandomModelName
}

// Dimensions returns the vector width.
func (p *RandomProvider) Dimensions() int {
	return p.dimensions
}
