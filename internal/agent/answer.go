package agent

import (
	"context"
	"fmt"
	"strings"

	"cs-support/internal/domain"
)

// Answerer generates a grounded answer from retrieved passages.
// With an empty retrieval it skips the model entirely and reports the
// fixed no-information answer; with a failed model call it surfaces
// ErrServiceUnavailable rather than inventing text.
type Answerer struct {
	generator domain.Generator
}

// NewAnswerer creates the answer stage.
func NewAnswerer(generator domain.Generator) *Answerer {
	return &Answerer{generator: generator}
}

// Answer runs the stage. The answer is attributed to the source document
// of the single highest-similarity chunk used.
func (a *Answerer) Answer(ctx context.Context, query string, retrieval domain.RetrievalResult) (domain.Answer, error) {
	if retrieval.Empty() {
		return domain.Answer{
			Query:          query,
			Text:           noInformationAnswer,
			SourceDocument: domain.NoSourceDocument,
		}, nil
	}

	prompt := fmt.Sprintf(`Context from knowledge base:

%s

Question: %s

Please provide a helpful answer based on the context above.`, retrieval.Context(), query)

	response, err := a.generator.Generate(ctx, answerSystemPrompt, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("answer generation: %w", err)
	}

	var parsed struct {
		Answer string `json:"answer"`
	}
	text := strings.TrimSpace(response)
	if err := extractJSON(response, &parsed); err == nil && strings.TrimSpace(parsed.Answer) != "" {
		text = strings.TrimSpace(parsed.Answer)
	}
	return domain.Answer{
		Query:          query,
		Text:           text,
		SourceDocument: retrieval.Chunks[0].Chunk.DocumentName,
		Passages:       retrieval.Chunks,
	}, nil
}
