package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartsum/backend/pkg/ai"
)

const (
	keywordMaxTokens = 700
	keywordRawRunes  = 300
)

// KeywordExtractor answers focused queries against raw text without
// segmenting it.
type KeywordExtractor struct {
	gen   ai.Generator
	model string
}

// NewKeywordExtractor returns a KeywordExtractor using gen. model may be empty.
func NewKeywordExtractor(gen ai.Generator, model string) *KeywordExtractor {
	return &KeywordExtractor{gen: gen, model: model}
}

type keywordPayload struct {
	Topic           string   `json:"topic"`
	Summary         string   `json:"summary"`
	KeyPoints       flexList `json:"key_points"`
	RelatedConcepts flexList `json:"related_concepts"`
}

// Query extracts only the information about keyword from text. It never
// returns an error: validation and call failures are reported in the
// result's Error field, malformed output as a "Parsing Error" result.
func (k *KeywordExtractor) Query(ctx context.Context, text, keyword string) KeywordQueryResult {
	text = strings.TrimSpace(text)
	keyword = strings.TrimSpace(keyword)
	if text == "" || keyword == "" {
		return KeywordQueryResult{Error: "Text and keyword are required"}
	}
	if k.gen == nil {
		return KeywordQueryResult{Error: "generation client not configured"}
	}

	raw, err := k.gen.GenerateCompletion(
		ctx,
		fmt.Sprintf(ai.KeywordUserPrompt, text),
		ai.WithModel(k.model),
		ai.WithSystemPrompts(fmt.Sprintf(ai.KeywordSystemPrompt, keyword)),
		ai.WithTemperature(extractTemperature),
		ai.WithMaxTokens(keywordMaxTokens),
		ai.WithJSONSchema("keyword_query", "Information about one keyword", keywordPayload{}),
	)
	if err != nil {
		return KeywordQueryResult{Error: fmt.Sprintf("generation failed: %v", err)}
	}

	cleaned := ai.StripCodeFence(raw)
	var payload keywordPayload
	if err := ai.UnmarshalFlexible(cleaned, &payload); err != nil {
		return KeywordQueryResult{
			Topic:           FallbackTopic,
			Summary:         ai.Truncate(cleaned, keywordRawRunes),
			KeyPoints:       []string{},
			RelatedConcepts: []string{},
		}
	}

	return KeywordQueryResult{
		Topic:           strings.TrimSpace(payload.Topic),
		Summary:         strings.TrimSpace(payload.Summary),
		KeyPoints:       nonNil(payload.KeyPoints),
		RelatedConcepts: nonNil(payload.RelatedConcepts),
	}
}
