package ollama

import (
	"context"
	"encoding/json"

	"github.com/citetrace/citetrace/internal/core/domain"
)

// Matcher asks the validation model whether an extracted value is supported
// by its cited source text. Unparsable model output degrades to a
// conservative no-match instead of surfacing a parse error; only transport
// failures are returned as errors.
type Matcher struct {
	client *Client
	model  string
}

func NewMatcher(client *Client, model string) *Matcher {
	return &Matcher{client: client, model: model}
}

type matchResponse struct {
	IsValid    bool     `json:"isValid"`
	Confidence float64  `json:"confidence"`
	MatchType  string   `json:"matchType"`
	Reasoning  string   `json:"reasoning"`
	Issues     []string `json:"issues"`
}

func (m *Matcher) Match(ctx context.Context, extractedText, sourceText, fieldContext string) (domain.SemanticMatch, error) {
	prompt := buildMatchPrompt(extractedText, sourceText, fieldContext)
	raw, err := m.client.generateJSON(ctx, "semantic_match", m.model, prompt, 0)
	if err != nil {
		return domain.SemanticMatch{}, err
	}

	var response matchResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &response); err != nil {
		return domain.SemanticMatch{
			IsValid:    false,
			Confidence: 0,
			MatchType:  domain.MatchNone,
			Issues:     []string{"model returned unparsable validation output"},
		}, nil
	}

	return domain.SemanticMatch{
		IsValid:    response.IsValid,
		Confidence: clampConfidence(response.Confidence),
		MatchType:  parseMatchType(response.MatchType),
		Reasoning:  response.Reasoning,
		Issues:     response.Issues,
	}, nil
}

func parseMatchType(s string) domain.MatchType {
	switch domain.MatchType(s) {
	case domain.MatchExact, domain.MatchParaphrase, domain.MatchSemantic, domain.MatchWeak:
		return domain.MatchType(s)
	default:
		return domain.MatchNone
	}
}
