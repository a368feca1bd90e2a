package notes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/ai/aitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordQuery_RequiresTextAndKeyword(t *testing.T) {
	stub := &aitest.Stub{}
	k := NewKeywordExtractor(stub, "")

	for _, in := range [][2]string{{"", "budget"}, {"some text", ""}, {"  ", "  "}} {
		res := k.Query(context.Background(), in[0], in[1])
		assert.Equal(t, "Text and keyword are required", res.Error)
	}
	assert.Zero(t, stub.CallCount())
}

func TestKeywordQuery_Parses(t *testing.T) {
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		return `{"topic":"Budget","summary":"It grows.","key_points":["up 10%"],"related_concepts":"costs; revenue"}`, nil
	}}

	res := NewKeywordExtractor(stub, "m2").Query(context.Background(), "The budget grows by ten percent.", "budget")
	assert.Empty(t, res.Error)
	assert.Equal(t, "Budget", res.Topic)
	assert.Equal(t, "It grows.", res.Summary)
	assert.Equal(t, []string{"up 10%"}, res.KeyPoints)
	assert.Equal(t, []string{"costs", "revenue"}, res.RelatedConcepts)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	opts := calls[0].Options
	assert.Equal(t, 700, opts.MaxTokens)
	assert.Equal(t, "m2", opts.Model)
	assert.Equal(t, ai.ResponseJSONSchema, opts.Format)
	assert.Equal(t, "keyword_query", opts.SchemaName)
	assert.NotNil(t, opts.Schema)
	require.Len(t, opts.SystemPrompts, 1)
	assert.Contains(t, opts.SystemPrompts[0], "'budget'")
	assert.Contains(t, opts.SystemPrompts[0], ai.KeywordNotFound)
	assert.Contains(t, calls[0].Prompt, "The budget grows by ten percent.")
}

func TestKeywordQuery_MalformedOutput(t *testing.T) {
	raw := "I could not find JSON for you. " + strings.Repeat("z", 400)
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		return raw, nil
	}}

	res := NewKeywordExtractor(stub, "").Query(context.Background(), "text", "budget")
	assert.Empty(t, res.Error)
	assert.Equal(t, FallbackTopic, res.Topic)
	assert.Equal(t, raw[:300], res.Summary)
	assert.Empty(t, res.KeyPoints)
	assert.Empty(t, res.RelatedConcepts)
}

func TestKeywordQuery_CallError(t *testing.T) {
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		return "", errors.New("upstream unavailable")
	}}

	res := NewKeywordExtractor(stub, "").Query(context.Background(), "text", "budget")
	assert.Contains(t, res.Error, "upstream unavailable")
	assert.Empty(t, res.Topic)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"generation failed: upstream unavailable"}`, string(data))
}

func TestKeywordQueryResult_JSONShape(t *testing.T) {
	data, err := json.Marshal(KeywordQueryResult{Topic: "Budget", Summary: ai.KeywordNotFound})
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"Budget","summary":"No relevant information found for this topic.","key_points":[],"related_concepts":[]}`, string(data))
}
