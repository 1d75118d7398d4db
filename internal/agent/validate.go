package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cs-support/internal/domain"
)

// Rubric bounds for the four validation criteria.
const (
	maxGroundedScore = 40
	maxRelevantScore = 30
	maxCompleteScore = 20
	maxClearScore    = 10
)

// Defaults used when the model omits a criterion.
const (
	defaultGroundedScore = 20
	defaultRelevantScore = 15
	defaultCompleteScore = 10
	defaultClearScore    = 5
)

// unparsableScore is the moderate fallback when the model returns no JSON.
const unparsableScore = 50

// Validator independently scores an answer's groundedness against the
// retrieved context via a model judgment call. An empty retrieval is
// never sent to the model: an ungrounded answer can never be reported
// with confidence, so the score is pinned to the low band.
type Validator struct {
	generator domain.Generator
}

// NewValidator creates the validation stage.
func NewValidator(generator domain.Generator) *Validator {
	return &Validator{generator: generator}
}

// Validate runs the stage and returns a 0-100 confidence score.
func (v *Validator) Validate(ctx context.Context, question, answer string, retrieval domain.RetrievalResult) (domain.Validation, error) {
	if retrieval.Empty() {
		return domain.Validation{
			ConfidenceScore: 0,
			Reasoning:       "No supporting passages were retrieved, so the answer cannot be verified.",
		}, nil
	}

	prompt := buildValidationPrompt(question, answer, retrieval)
	response, err := v.generator.Generate(ctx, validationSystemPrompt, prompt)
	if err != nil {
		return domain.Validation{}, fmt.Errorf("validation call: %w", err)
	}

	var parsed struct {
		GroundedScore *int   `json:"grounded_score"`
		RelevantScore *int   `json:"relevant_score"`
		CompleteScore *int   `json:"complete_score"`
		ClearScore    *int   `json:"clear_score"`
		IsGrounded    bool   `json:"is_grounded"`
		IsRelevant    bool   `json:"is_relevant"`
		IsComplete    bool   `json:"is_complete"`
		Reasoning     string `json:"reasoning"`
	}
	if err := extractJSON(response, &parsed); err != nil {
		return domain.Validation{
			ConfidenceScore: unparsableScore,
			Reasoning:       "Unable to parse validation output; assuming moderate confidence.",
		}, nil
	}

	score := clampScore(parsed.GroundedScore, defaultGroundedScore, maxGroundedScore) +
		clampScore(parsed.RelevantScore, defaultRelevantScore, maxRelevantScore) +
		clampScore(parsed.CompleteScore, defaultCompleteScore, maxCompleteScore) +
		clampScore(parsed.ClearScore, defaultClearScore, maxClearScore)

	return domain.Validation{
		ConfidenceScore: score,
		Reasoning:       strings.TrimSpace(parsed.Reasoning),
		IsGrounded:      parsed.IsGrounded,
		IsRelevant:      parsed.IsRelevant,
		IsComplete:      parsed.IsComplete,
	}, nil
}

func clampScore(v *int, def, max int) int {
	if v == nil {
		return def
	}
	if *v < 0 {
		return 0
	}
	if *v > max {
		return max
	}
	return *v
}

func buildValidationPrompt(question, answer string, retrieval domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Question: " + question + "\n\n")
	b.WriteString("Answer to validate: " + answer + "\n\n")
	b.WriteString("Top passage similarity: " + strconv.FormatFloat(retrieval.TopSimilarity(), 'f', 3, 64) + "\n\n")
	b.WriteString("Source passages:\n\n")
	b.WriteString(retrieval.Context())
	return b.String()
}
