package agent

import (
	"context"
	"strings"

	"cs-support/internal/domain"
)

var validIntents = map[string]struct{}{
	"ACCOUNT": {},
	"LOANS":   {},
	"FEES":    {},
	"CARDS":   {},
	"BRANCH":  {},
	"TECH":    {},
	"OTHER":   {},
}

// Reformulator rewrites a raw, possibly emotional question into an
// intent-bearing search query. A failed model call or unparsable output
// degrades to the raw question verbatim: reformulation failure must
// never block retrieval.
type Reformulator struct {
	generator domain.Generator
}

// NewReformulator creates the reformulation stage.
func NewReformulator(generator domain.Generator) *Reformulator {
	return &Reformulator{generator: generator}
}

// Reformulate runs the stage. It never returns an error; the fallback
// result carries UsedFallback so callers can observe the degrade.
func (r *Reformulator) Reformulate(ctx context.Context, rawQuestion string) domain.Reformulation {
	fallback := domain.Reformulation{
		OriginalQuestion:  rawQuestion,
		ReformulatedQuery: rawQuestion,
		DetectedIntent:    domain.IntentUnknown,
		UsedFallback:      true,
	}

	response, err := r.generator.Generate(ctx, reformulationSystemPrompt, rawQuestion)
	if err != nil {
		return fallback
	}

	var parsed struct {
		ReformulatedQuery string `json:"reformulated_query"`
		DetectedIntent    string `json:"detected_intent"`
	}
	if err := extractJSON(response, &parsed); err != nil {
		return fallback
	}
	query := strings.TrimSpace(parsed.ReformulatedQuery)
	if query == "" {
		return fallback
	}
	intent := strings.ToUpper(strings.TrimSpace(parsed.DetectedIntent))
	if _, ok := validIntents[intent]; !ok {
		intent = "OTHER"
	}
	return domain.Reformulation{
		OriginalQuestion:  rawQuestion,
		ReformulatedQuery: query,
		DetectedIntent:    intent,
	}
}
