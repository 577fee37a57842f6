package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/pipeline"
	"github.com/matsen/journalrec/internal/recommend"
	"github.com/matsen/journalrec/internal/topics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService records requests and returns canned results.
type fakeService struct {
	outcome    *pipeline.Outcome
	domains    []string
	domainsErr error
	rebuildErr error
	panicOn    bool
	lastReq    pipeline.Request
}

func (f *fakeService) Recommend(ctx context.Context, req pipeline.Request) *pipeline.Outcome {
	if f.panicOn {
		panic("boom")
	}
	f.lastReq = req
	return f.outcome
}

func (f *fakeService) Domains(ctx context.Context) ([]string, []string, error) {
	return f.domains, nil, f.domainsErr
}

func (f *fakeService) Topics(ctx context.Context, text string, topK int) topics.Result {
	return topics.Result{Phrases: topics.Bigrams(text, topK), Fallback: true}
}

func (f *fakeService) Rebuild(ctx context.Context) (*pipeline.Info, error) {
	if f.rebuildErr != nil {
		return nil, f.rebuildErr
	}
	return &pipeline.Info{Ready: true, Journals: 7, Indexed: 7, Model: "fake"}, nil
}

func (f *fakeService) Info() pipeline.Info {
	return pipeline.Info{Ready: true, Journals: 7, Indexed: 7, Model: "fake"}
}

func okOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		Status: pipeline.StatusOK,
		Topics: []string{"protein folding"},
		Recommendations: []pipeline.Recommendation{{
			Rank: 1,
			Candidate: recommend.Candidate{
				Title:     "Structural <Biology>",
				Publisher: "N/A",
				ISSN:      "1234-5678",
				URL:       "https://example.org/sb",
				Score:     0.87654,
			},
			Metrics: metrics.Metrics{ImpactFactor: 4.2, AcceptanceRate: "18.5%", Indexing: []string{"Scopus"}},
		}},
	}
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndexPage(t *testing.T) {
	s := New(&fakeService{domains: []string{"Biology", "Physics"}}, nil, Options{})
	w := do(t, s, http.MethodGet, "/", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`<option value="Biology"`, `<option value="Scopus"`, `name="impact_max"`, `value="10"`, `value="3"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if w.Header().Get(headerRequestID) == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestSubmitForm(t *testing.T) {
	svc := &fakeService{outcome: okOutcome(), domains: []string{"Biology"}}
	s := New(svc, nil, Options{})

	form := url.Values{
		"title":      {"Protein folding"},
		"abstract":   {"We fold proteins."},
		"domains":    {"Biology"},
		"impact_min": {"1.5"},
		"impact_max": {"8"},
		"indexing":   {"Scopus", "Web of Science"},
		"count":      {"5"},
	}
	w := do(t, s, http.MethodPost, "/", "application/x-www-form-urlencoded", form.Encode())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	got := svc.lastReq
	if got.Title != "Protein folding" || *got.ImpactMin != 1.5 || *got.ImpactMax != 8 || got.Count != 5 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Indexing) != 2 || len(got.Domains) != 1 {
		t.Errorf("multi-selects = %v / %v", got.Indexing, got.Domains)
	}

	body := w.Body.String()
	for _, want := range []string{"Structural &lt;Biology&gt;", "0.877", "Domains: N/A", "18.5%", "protein folding", "simulated values"} {
		if !strings.Contains(body, want) {
			t.Errorf("results missing %q", want)
		}
	}
}

func TestSubmitForm_BadNumber(t *testing.T) {
	svc := &fakeService{outcome: okOutcome()}
	s := New(svc, nil, Options{})

	form := url.Values{"title": {"T"}, "abstract": {"A"}, "count": {"three"}}
	w := do(t, s, http.MethodPost, "/", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "whole number") {
		t.Error("page does not explain the bad count")
	}
}

func TestAPIRecommend(t *testing.T) {
	tests := []struct {
		name       string
		outcome    *pipeline.Outcome
		body       string
		wantStatus int
		wantField  pipeline.Status
	}{
		{"ok", okOutcome(), `{"title": "T", "abstract": "A", "count": 1}`, http.StatusOK, pipeline.StatusOK},
		{"no matches is informational", &pipeline.Outcome{Status: pipeline.StatusNoMatches, Message: pipeline.MsgNoMatches}, `{"title": "T", "abstract": "A"}`, http.StatusOK, pipeline.StatusNoMatches},
		{"invalid", &pipeline.Outcome{Status: pipeline.StatusInvalid, Message: pipeline.MsgMissingInput}, `{"title": "T"}`, http.StatusBadRequest, pipeline.StatusInvalid},
		{"malformed json", okOutcome(), `{"title":`, http.StatusBadRequest, pipeline.StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeService{outcome: tt.outcome}, nil, Options{})
			w := do(t, s, http.MethodPost, "/api/recommend", "application/json", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp struct {
				Status pipeline.Status `json:"status"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Status != tt.wantField {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantField)
			}
		})
	}
}

func TestAPIDomains(t *testing.T) {
	s := New(&fakeService{domains: []string{"Biology", "Physics"}}, nil, Options{})
	w := do(t, s, http.MethodGet, "/api/domains", "", "")

	var resp struct {
		Domains []string `json:"domains"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Domains) != 2 {
		t.Errorf("response = %+v", resp)
	}

	s = New(&fakeService{domainsErr: context.Canceled}, nil, Options{})
	if w := do(t, s, http.MethodGet, "/api/domains", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAPITopics(t *testing.T) {
	s := New(&fakeService{}, nil, Options{})

	w := do(t, s, http.MethodPost, "/api/topics", "application/json", `{"text": "alpha beta gamma delta", "top_k": 2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Topics   []string `json:"topics"`
		Fallback bool     `json:"fallback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Topics) != 2 || resp.Topics[0] != "alpha beta" || !resp.Fallback {
		t.Errorf("response = %+v", resp)
	}

	if w := do(t, s, http.MethodPost, "/api/topics", "application/json", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing text status = %d, want 400", w.Code)
	}
}

func TestAPIRebuildAndHealth(t *testing.T) {
	s := New(&fakeService{}, nil, Options{})

	w := do(t, s, http.MethodPost, "/api/rebuild", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"journals":7`) {
		t.Errorf("rebuild = %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"model":"fake"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}

	s = New(&fakeService{rebuildErr: errors.New("down")}, nil, Options{})
	if w := do(t, s, http.MethodPost, "/api/rebuild", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed rebuild status = %d, want 503", w.Code)
	}
}

func TestRecoveryReturnsGenericMessage(t *testing.T) {
	s := New(&fakeService{panicOn: true}, nil, Options{})
	w := do(t, s, http.MethodPost, "/api/recommend", "application/json", `{"title": "T", "abstract": "A"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), pipeline.MsgError) {
		t.Errorf("body = %s, want generic message", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s := New(&fakeService{}, nil, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}
