package pipeline

import "errors"

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoFetcher is returned when a session has no catalog source.
	ErrNoFetcher = errors.New("no journal fetcher configured")
)

// Status classifies the result of a recommendation run.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoJournals   Status = "no_journals"
	StatusEmptyIndex   Status = "empty_index"
	StatusNoCandidates Status = "no_candidates"
	StatusNoMatches    Status = "no_matches"
	StatusInvalid      Status = "invalid"
	StatusError        Status = "error"
)

// User-facing messages for each non-OK status.
const (
	MsgMissingInput = "Both title and abstract are required."
	MsgNoJournals   = "No journals available to index. The journal catalog could not be loaded; try again later."
	MsgEmptyIndex   = "The recommendation index is empty."
	MsgNoCandidates = "Could not generate recommendations. This might be due to technical issues or no matching journals."
	MsgNoMatches    = "No journals match your filters. Try broadening your criteria."
	MsgError        = "An unexpected error occurred. Please try again."
)

// Empty reports whether s is one of the informational no-data statuses.
func (s Status) Empty() bool {
	switch s {
	case StatusNoJournals, StatusEmptyIndex, StatusNoCandidates, StatusNoMatches:
		return true
	}
	return false
}
