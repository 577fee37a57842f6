package embedding

import "time"

// settings holds configuration shared by the HTTP-backed providers.
type settings struct {
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
}

// Option configures an HTTP-backed provider.
type Option func(*settings)

// WithBaseURL sets the embedding service base URL.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) Option {
	return func(s *settings) {
		s.dimensions = dims
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

func newSettings(baseURL, model string, opts []Option) settings {
	s := settings{
		baseURL:    baseURL,
		model:      model,
		dimensions: DefaultDimensions,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
