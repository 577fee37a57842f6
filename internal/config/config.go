// Package config loads journalrec settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Embedding providers and index backends accepted by Validate.
var (
	ValidProviders = []string{"tei", "ollama", "random"}
	ValidBackends  = []string{"flat", "qdrant"}
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	OpenAlex  OpenAlexConfig  `yaml:"openalex"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Topics    TopicsConfig    `yaml:"topics"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Storage   StorageConfig   `yaml:"storage"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds the HTTP listener settings for jrec serve.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects the zap logger preset.
type LogConfig struct {
	Mode string `yaml:"mode"` // prod or dev
}

// OpenAlexConfig controls how the journal catalog is fetched and how long it stays fresh.
type OpenAlexConfig struct {
	BaseURL  string        `yaml:"base_url,omitempty"`
	Mailto   string        `yaml:"mailto,omitempty"`
	PerPage  int           `yaml:"per_page"`
	MaxPages int           `yaml:"max_pages"`
	Timeout  time.Duration `yaml:"timeout"`
	TTL      time.Duration `yaml:"ttl"` // catalog freshness; 0 never expires
}

// EmbeddingConfig selects the embedding model (tei, ollama or random) and how
// journal descriptions are batched through it.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"`
	URL         string        `yaml:"url,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	Dimensions  int           `yaml:"dimensions,omitempty"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	CachePath   string        `yaml:"cache_path,omitempty"` // bbolt file; empty disables
}

// IndexConfig selects the similarity index backend: the in-memory flat
// index, optionally snapshotted to Path, or a Qdrant collection.
type IndexConfig struct {
	Backend    string `yaml:"backend"`
	QdrantHost string `yaml:"qdrant_host,omitempty"`
	QdrantPort int    `yaml:"qdrant_port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	Path       string `yaml:"path,omitempty"` // gob snapshot for the flat backend
}

// TopicsConfig configures key-phrase extraction. Without SpacyURL topics
// come from the bigram fallback.
type TopicsConfig struct {
	SpacyURL string `yaml:"spacy_url,omitempty"`
	TopK     int    `yaml:"top_k"`
}

// MetricsConfig configures the optional Redis cache that keeps simulated
// journal metrics stable per ISSN.
type MetricsConfig struct {
	RedisURL string        `yaml:"redis_url,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
}

// StorageConfig locates the sqlite catalog snapshot.
type StorageConfig struct {
	CatalogDB string `yaml:"catalog_db,omitempty"`
}

// TracingConfig enables OpenTelemetry spans.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint,omitempty"` // OTLP/HTTP collector; empty prints spans to stderr
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8501"},
		Log:    LogConfig{Mode: "dev"},
		OpenAlex: OpenAlexConfig{
			BaseURL:  "https://api.openalex.org",
			PerPage:  200,
			MaxPages: 5,
			Timeout:  15 * time.Second,
			TTL:      time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:    "tei",
			BatchSize:   32,
			Concurrency: 2,
		},
		Index: IndexConfig{
			Backend:    "flat",
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "journals",
		},
		Topics:  TopicsConfig{TopK: 5},
		Metrics: MetricsConfig{TTL: time.Hour},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path means GlobalConfigPath. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = GlobalConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Embedding.CachePath = ExpandPath(cfg.Embedding.CachePath)
	cfg.Index.Path = ExpandPath(cfg.Index.Path)
	cfg.Storage.CatalogDB = ExpandPath(cfg.Storage.CatalogDB)

	return cfg, nil
}

// applyEnv overrides fields from JREC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	str("JREC_ADDR", &c.Server.Addr)
	str("JREC_LOG_MODE", &c.Log.Mode)
	str("JREC_OPENALEX_URL", &c.OpenAlex.BaseURL)
	str("OPENALEX_MAILTO", &c.OpenAlex.Mailto)
	str("JREC_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("JREC_EMBEDDING_URL", &c.Embedding.URL)
	str("JREC_EMBEDDING_MODEL", &c.Embedding.Model)
	str("JREC_EMBEDDING_CACHE", &c.Embedding.CachePath)
	str("JREC_INDEX_BACKEND", &c.Index.Backend)
	str("JREC_QDRANT_HOST", &c.Index.QdrantHost)
	str("JREC_SPACY_URL", &c.Topics.SpacyURL)
	str("JREC_REDIS_URL", &c.Metrics.RedisURL)
	str("JREC_CATALOG_DB", &c.Storage.CatalogDB)
	str("JREC_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	if err := num("JREC_QDRANT_PORT", &c.Index.QdrantPort); err != nil {
		return err
	}

	if v, ok := lookup("JREC_TRACING"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: JREC_TRACING=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	if c.OpenAlex.PerPage < 1 || c.OpenAlex.PerPage > 200 {
		problems = append(problems, fmt.Sprintf("openalex.per_page must be 1-200, got %d", c.OpenAlex.PerPage))
	}
	if c.OpenAlex.MaxPages < 1 {
		problems = append(problems, fmt.Sprintf("openalex.max_pages must be >= 1, got %d", c.OpenAlex.MaxPages))
	}
	if c.OpenAlex.TTL < 0 {
		problems = append(problems, "openalex.ttl must not be negative")
	}
	if c.Embedding.BatchSize < 1 {
		problems = append(problems, fmt.Sprintf("embedding.batch_size must be >= 1, got %d", c.Embedding.BatchSize))
	}
	if c.Embedding.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("embedding.concurrency must be >= 1, got %d", c.Embedding.Concurrency))
	}
	if c.Embedding.Dimensions < 0 {
		problems = append(problems, "embedding.dimensions must not be negative")
	}
	if !contains(ValidProviders, c.Embedding.Provider) {
		problems = append(problems, fmt.Sprintf("embedding.provider %q (valid: %v)", c.Embedding.Provider, ValidProviders))
	}
	if !contains(ValidBackends, c.Index.Backend) {
		problems = append(problems, fmt.Sprintf("index.backend %q (valid: %v)", c.Index.Backend, ValidBackends))
	}
	if c.Index.Backend == "qdrant" && (c.Index.QdrantPort <= 0 || c.Index.QdrantHost == "") {
		problems = append(problems, "index.qdrant_host and index.qdrant_port are required for the qdrant backend")
	}
	if c.Topics.TopK < 1 {
		problems = append(problems, fmt.Sprintf("topics.top_k must be >= 1, got %d", c.Topics.TopK))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Metrics.RedisURL != "" {
		cp.Metrics.RedisURL = "[REDACTED]"
	}
	if cp.OpenAlex.Mailto != "" {
		cp.OpenAlex.Mailto = "[REDACTED]"
	}
	return &cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
