package pipeline

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/matsen/journalrec/internal/recommend"
	"github.com/matsen/journalrec/internal/tracing"
)

// Recommend runs the full flow for one manuscript: validate, extract
// topics, search the index, filter by metrics. It never returns an error
// or panics; every outcome, including failures, is described by Status.
func (s *Session) Recommend(ctx context.Context, req Request) (out *Outcome) {
	ctx, span := tracing.Start(ctx, "pipeline.Recommend")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recommendation panicked", "panic", r)
			span.SetStatus(codes.Error, "panic")
			out = newOutcome().finish(StatusError, MsgError)
		}
	}()

	req, err := req.Normalize()
	if err != nil {
		var invalidErr *InvalidRequestError
		if errors.As(err, &invalidErr) {
			return newOutcome().finish(StatusInvalid, invalidErr.Reason)
		}
		return newOutcome().finish(StatusInvalid, err.Error())
	}

	out = newOutcome()
	query := req.Query()

	res := s.Topics(ctx, query, 0)
	out.setTopics(res)
	if res.Warning != nil {
		out.warn("Topic extraction used simple word pairs: %v", res.Warning)
	}

	g, err := s.state(ctx)
	if err != nil {
		s.log.Error("loading catalog", "error", err)
		span.RecordError(err)
		return out.finish(StatusError, MsgError)
	}
	defer g.release()
	out.Warnings = append(out.Warnings, g.warnings...)

	provider := g.provider
	out.Model = provider.ModelName()
	if g.embedWarn != nil {
		out.warn("%v", g.embedWarn)
	}

	if g.catalog.Len() == 0 {
		return out.finish(StatusNoJournals, MsgNoJournals)
	}
	if g.index == nil || g.index.Count() == 0 {
		return out.finish(StatusEmptyIndex, MsgEmptyIndex)
	}

	candidates, err := recommend.Recommend(ctx, query, g.catalog.Journals(), g.index, provider, req.Domains, req.TopK)
	if err != nil {
		s.log.Warn("recommendation failed", "error", err)
		span.RecordError(err)
		out.warn("Recommendation failed: %v", err)
		return out.finish(StatusNoCandidates, MsgNoCandidates)
	}
	if len(candidates) == 0 {
		return out.finish(StatusNoCandidates, MsgNoCandidates)
	}

	recs, warnings := req.Filter().Apply(ctx, candidates, s.metrics)
	for _, w := range warnings {
		s.log.Warn("metrics lookup", "detail", w)
	}
	out.Warnings = append(out.Warnings, warnings...)

	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("recommendations", len(recs)),
	)
	if len(recs) == 0 {
		return out.finish(StatusNoMatches, MsgNoMatches)
	}
	out.Recommendations = recs
	return out
}
