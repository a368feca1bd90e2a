package notes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/ai/aitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaryRecords = []StructuredRecord{
	{SegmentID: 1, Topic: "Budget", Summary: "Costs rose."},
	{SegmentID: 2, Topic: "Hiring", Summary: "Two roles open."},
}

func TestSummarizer_Document(t *testing.T) {
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		return "```json\n{\"overall_summary\": \" Costs and hiring. \", \"keywords\": [\"budget\", \"Budget\", \"hiring\"]}\n```", nil
	}}

	out := NewSummarizer(stub, "m1", "").Document(context.Background(), summaryRecords)
	require.False(t, out.Skipped, out.Reason)
	assert.Equal(t, "Costs and hiring.", out.Value.OverallSummary)
	assert.Equal(t, []string{"budget", "hiring"}, out.Value.Keywords)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "1. Budget: Costs rose.")
	assert.Equal(t, "m1", calls[0].Options.Model)
}

func TestSummarizer_Document_Skips(t *testing.T) {
	t.Run("no records", func(t *testing.T) {
		stub := &aitest.Stub{}
		out := NewSummarizer(stub, "m1", "").Document(context.Background(), nil)
		assert.True(t, out.Skipped)
		assert.Zero(t, stub.CallCount())
	})

	t.Run("fatal error stops retries", func(t *testing.T) {
		stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			return "", ai.NewCallError(401, errors.New("bad key"))
		}}
		out := NewSummarizer(stub, "m1", "").Document(context.Background(), summaryRecords)
		assert.True(t, out.Skipped)
		assert.Equal(t, 1, stub.CallCount())
	})

	t.Run("empty summary is retried then skipped", func(t *testing.T) {
		stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
			return `{"overall_summary": "", "keywords": []}`, nil
		}}
		out := NewSummarizer(stub, "m1", "").Document(context.Background(), summaryRecords)
		assert.True(t, out.Skipped)
		assert.Equal(t, 2, stub.CallCount())
	})
}

func TestSummarizer_Secondary(t *testing.T) {
	stub := &aitest.Stub{Generate: func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
		if strings.Contains(prompt, "hiring") {
			return "", errors.New("timeout")
		}
		return " Short take. ", nil
	}}
	records := append([]StructuredRecord(nil), summaryRecords...)
	segments := []Segment{
		{Index: 1, Text: "we talked about the budget"},
		{Index: 2, Text: "we talked about hiring"},
	}

	out := NewSummarizer(stub, "m1", "small").Secondary(context.Background(), records, segments)
	require.False(t, out.Skipped, out.Reason)
	require.Len(t, out.Value, 2)
	assert.Equal(t, "Short take.", out.Value[0].SecondarySummary)
	assert.Empty(t, out.Value[1].SecondarySummary)
	assert.Equal(t, summaryRecords, records, "input records stay untouched")
	for _, c := range stub.Calls() {
		assert.Equal(t, "small", c.Options.Model)
	}
}

func TestSummarizer_Secondary_Disabled(t *testing.T) {
	stub := &aitest.Stub{}
	out := NewSummarizer(stub, "m1", "").Secondary(context.Background(), summaryRecords, nil)
	assert.True(t, out.Skipped)
	assert.Zero(t, stub.CallCount())
}
