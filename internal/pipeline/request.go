package pipeline

import (
	"fmt"
	"strings"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/topics"
)

// Request is a manuscript and the user's filter choices.
// Unset fields select defaults: impact min 0, impact max 10, count 3,
// top-k 10. Each impact bound defaults on its own.
type Request struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Domains   []string `json:"domains,omitempty"`
	ImpactMin *float64 `json:"impact_min,omitempty"`
	ImpactMax *float64 `json:"impact_max,omitempty"`
	Indexing  []string `json:"indexing,omitempty"`
	Count     int      `json:"count,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
}

// Impact returns a pointer to v, for setting the optional impact bounds.
func Impact(v float64) *float64 {
	return &v
}

// impactRange returns the bounds with defaults applied.
func (r Request) impactRange() (lo, hi float64) {
	lo, hi = ImpactFloor, DefaultImpactMax
	if r.ImpactMin != nil {
		lo = *r.ImpactMin
	}
	if r.ImpactMax != nil {
		hi = *r.ImpactMax
	}
	return lo, hi
}

// Query is the text embedded for similarity search.
func (r Request) Query() string {
	return strings.TrimSpace(r.Title) + " " + strings.TrimSpace(r.Abstract)
}

// Filter returns the metric filter described by the request.
func (r Request) Filter() Filter {
	lo, hi := r.impactRange()
	return Filter{ImpactMin: lo, ImpactMax: hi, Indexing: r.Indexing, Count: r.Count}
}

// InvalidRequestError describes why a request was rejected.
// Reason is suitable for display.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

func (e *InvalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(format string, args ...interface{}) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// Normalize fills defaults and validates ranges. Errors are *InvalidRequestError.
func (r Request) Normalize() (Request, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Abstract = strings.TrimSpace(r.Abstract)
	if r.Title == "" || r.Abstract == "" {
		return r, invalid(MsgMissingInput)
	}

	lo, hi := r.impactRange()
	if lo < ImpactFloor || hi > ImpactCeiling || lo > hi {
		return r, invalid("Impact factor range must satisfy %.0f <= min <= max <= %.0f.", ImpactFloor, ImpactCeiling)
	}
	r.ImpactMin, r.ImpactMax = Impact(lo), Impact(hi)

	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Count < MinCount || r.Count > MaxCount {
		return r, invalid("Count must be between %d and %d.", MinCount, MaxCount)
	}

	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	if r.TopK < r.Count {
		r.TopK = r.Count
	}

	for _, idx := range r.Indexing {
		if !contains(metrics.IndexingCatalog, idx) {
			return r, invalid("Unknown indexing service %q.", idx)
		}
	}

	r.Domains = compact(r.Domains)
	return r, nil
}

// Outcome is everything the presentation layer needs to render a run.
type Outcome struct {
	Status          Status           `json:"status"`
	Message         string           `json:"message,omitempty"`
	Topics          []string         `json:"topics"`
	TopicsFallback  bool             `json:"topics_fallback,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings,omitempty"`
	Model           string           `json:"model,omitempty"`
}

func newOutcome() *Outcome {
	return &Outcome{Status: StatusOK, Topics: []string{}, Recommendations: []Recommendation{}}
}

func (o *Outcome) finish(s Status, msg string) *Outcome {
	o.Status = s
	o.Message = msg
	return o
}

func (o *Outcome) warn(format string, args ...interface{}) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

func (o *Outcome) setTopics(res topics.Result) {
	if res.Phrases != nil {
		o.Topics = res.Phrases
	}
	o.TopicsFallback = res.Fallback
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// compact trims entries and drops blanks and duplicates, keeping order.
func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
