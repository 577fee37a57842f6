package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names accepted by Select.
const (
	ProviderTEI    = "tei"
	ProviderOllama = "ollama"
	ProviderRandom = "random"
)

var (
	// ErrFallback marks a warning that the random provider replaced the configured model.
	ErrFallback = errors.New("embedding model unavailable, using random vectors")

	// ErrUnknownProvider is returned for an unrecognised provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// SelectOptions describes the provider to construct.
type SelectOptions struct {
	Provider   string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Select constructs the configured provider and checks that it is reachable.
// If the model cannot be reached, Select returns a RandomProvider of the
// same width together with a warning wrapping ErrFallback.
func Select(ctx context.Context, opts SelectOptions) (Provider, error) {
	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	var httpOpts []Option
	if opts.BaseURL != "" {
		httpOpts = append(httpOpts, WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		httpOpts = append(httpOpts, WithModel(opts.Model))
	}
	if opts.Timeout > 0 {
		httpOpts = append(httpOpts, WithTimeout(opts.Timeout))
	}
	httpOpts = append(httpOpts, WithDimensions(dims))

	var p Provider
	switch opts.Provider {
	case "", ProviderTEI:
		p = NewTEIProvider(httpOpts...)
	case ProviderOllama:
		p = NewOllamaProvider(httpOpts...)
	case ProviderRandom:
		return NewRandomProvider(dims, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}

	if prober, ok := p.(Prober); ok {
		if err := prober.IsAvailable(ctx); err != nil {
			return NewRandomProvider(dims, nil), fmt.Errorf("%w: %s: %v", ErrFallback, p.ModelName(), err)
		}
	}
	if o, ok := p.(*OllamaProvider); ok {
		has, err := o.HasModel(ctx)
		if err != nil {
			return NewRandomProvider(dims, nil), fmt.Errorf("%w: %s: %v", ErrFallback, o.ModelName(), err)
		}
		if !has {
			return NewRandomProvider(dims, nil), fmt.Errorf("%w: model %s not pulled", ErrFallback, o.ModelName())
		}
	}
	return p, nil
}

// IsFallback reports whether p is the random fallback provider.
func IsFallback(p Provider) bool {
	if c, ok := p.(*CachedProvider); ok {
		p = c.inner
	}
	_, ok := p.(*RandomProvider)
	return ok
}
