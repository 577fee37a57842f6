// Package topics extracts salient noun phrases from manuscript text.
// Results are informational and never influence ranking.
package topics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTopK is the number of phrases returned by default.
	DefaultTopK = 5

	// MinPhraseLength is the minimum character length of a kept phrase.
	MinPhraseLength = 6
)

// ErrNoChunker is reported when extraction falls back because no chunker is configured.
var ErrNoChunker = errors.New("no phrase chunker configured")

// Chunker splits text into noun phrases.
type Chunker interface {
	NounChunks(ctx context.Context, text string) ([]string, error)
}

// Result holds extracted phrases. Fallback is set when the naive
// bigram splitter was used, with Warning explaining why.
type Result struct {
	Phrases  []string `json:"topics"`
	Fallback bool     `json:"fallback"`
	Warning  error    `json:"-"`
}

// Extractor ranks multi-word noun phrases by frequency.
type Extractor struct {
	chunker Chunker
}

// NewExtractor creates an extractor. A nil chunker always falls back.
func NewExtractor(chunker Chunker) *Extractor {
	return &Extractor{chunker: chunker}
}

// Extract returns the topK most frequent multi-word noun phrases, lowercased.
// Equal counts keep first-seen order. If the chunker is missing or fails,
// it returns whitespace bigrams instead.
func (e *Extractor) Extract(ctx context.Context, text string, topK int) Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if e == nil || e.chunker == nil {
		return Result{Phrases: Bigrams(text, topK), Fallback: true, Warning: ErrNoChunker}
	}

	chunks, err := e.chunker.NounChunks(ctx, text)
	if err != nil {
		return Result{
			Phrases:  Bigrams(text, topK),
			Fallback: true,
			Warning:  fmt.Errorf("extracting noun phrases: %w", err),
		}
	}
	return Result{Phrases: TopPhrases(chunks, topK)}
}

// TopPhrases filters chunks to multi-word phrases longer than five
// characters and returns the topK by frequency.
func TopPhrases(chunks []string, topK int) []string {
	type entry struct {
		phrase string
		count  int
	}
	byPhrase := make(map[string]*entry)
	var order []*entry
	for _, chunk := range chunks {
		if len(strings.Fields(chunk)) <= 1 || utf8.RuneCountInString(chunk) < MinPhraseLength {
			continue
		}
		p := strings.ToLower(chunk)
		if e, ok := byPhrase[p]; ok {
			e.count++
			continue
		}
		e := &entry{phrase: p, count: 1}
		byPhrase[p] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	n := min(topK, len(order))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = order[i].phrase
	}
	return out
}

// Bigrams is the naive fallback: consecutive word pairs taken from the
// first topK*3 words, at most topK of them.
func Bigrams(text string, topK int) []string {
	words := strings.Fields(text)
	limit := min(len(words), topK*3)

	var out []string
	for i := 0; i < limit; i += 2 {
		end := min(i+2, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
