package pipeline

import "github.com/matsen/journalrec/internal/recommend"

type recommendCandidate struct {
	title string
	issn  string
	score float32
}

type recommendCandidates []recommendCandidate

func (cs recommendCandidates) build() []recommend.Candidate {
	out := make([]recommend.Candidate, len(cs))
	for i, c := range cs {
		out[i] = recommend.Candidate{Title: c.title, ISSN: c.issn, Score: c.score}
	}
	return out
}
