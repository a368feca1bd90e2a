package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int, summary string, actions, questions, keywords []string) StructuredRecord {
	return StructuredRecord{
		Topic:       "T",
		Summary:     summary,
		KeyPoints:   []string{},
		ActionItems: actions,
		Questions:   questions,
		Keywords:    keywords,
		SegmentID:   id,
	}
}

func TestAggregate_OrdersAndFlattens(t *testing.T) {
	records := []StructuredRecord{
		rec(3, "Third.", []string{"ship it"}, nil, []string{"Release"}),
		rec(1, "First.", []string{"call Bob"}, []string{"When?"}, []string{"budget", "Plan"}),
		rec(2, "Second.", []string{"call Bob"}, []string{}, []string{"plan", "release"}),
	}

	report, err := Aggregate(records, "", nil)
	require.NoError(t, err)

	ids := make([]int, len(report.Segments))
	for i, r := range report.Segments {
		ids[i] = r.SegmentID
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, "First. Second. Third.", report.OverallSummary)
	// flattened lists keep multiplicity and segment order
	assert.Equal(t, []string{"call Bob", "call Bob", "ship it"}, report.AllActionItems)
	assert.Equal(t, []string{"When?"}, report.AllQuestions)
	assert.Equal(t, []string{"budget", "Plan", "Release"}, report.AllKeywords)
	assert.NotNil(t, report.DocumentKeywords)
	assert.Empty(t, report.DocumentKeywords)
}

func TestAggregate_OverallSummaryAndDocumentKeywords(t *testing.T) {
	records := []StructuredRecord{rec(1, "Only.", nil, nil, nil)}

	report, err := Aggregate(records, "  Whole document.  ", []string{"zeta", "Alpha", "alpha", " "})
	require.NoError(t, err)
	assert.Equal(t, "Whole document.", report.OverallSummary)
	assert.Equal(t, []string{"Alpha", "zeta"}, report.DocumentKeywords)
}

func TestAggregate_Empty(t *testing.T) {
	report, err := Aggregate(nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Segments)
	assert.Equal(t, "", report.OverallSummary)
	assert.NotNil(t, report.AllActionItems)
	assert.NotNil(t, report.AllQuestions)
	assert.NotNil(t, report.AllKeywords)
}

func TestAggregate_DuplicateSegmentID(t *testing.T) {
	_, err := Aggregate([]StructuredRecord{
		rec(1, "a", nil, nil, nil),
		rec(2, "b", nil, nil, nil),
		rec(1, "c", nil, nil, nil),
	}, "", nil)
	assert.ErrorIs(t, err, ErrDuplicateSegment)
}

func TestAggregate_DoesNotMutateInputAndIsDeterministic(t *testing.T) {
	records := []StructuredRecord{
		rec(2, "Two.", []string{"b"}, nil, []string{"y"}),
		rec(1, "One.", []string{"a"}, nil, []string{"x"}),
	}

	first, err := Aggregate(records, "", nil)
	require.NoError(t, err)
	second, err := Aggregate(records, "", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, records[0].SegmentID)
	assert.Equal(t, 1, records[1].SegmentID)
}

func TestAggregate_SkippedSegmentsLeaveGaps(t *testing.T) {
	report, err := Aggregate([]StructuredRecord{
		rec(1, "One.", nil, nil, nil),
		rec(3, "Three.", nil, nil, nil),
	}, "", nil)
	require.NoError(t, err)
	require.Len(t, report.Segments, 2)
	assert.Equal(t, 3, report.Segments[1].SegmentID)
}
