package notes

import (
	"fmt"
	"sort"
	"strings"
)

// Aggregate merges records into a DocumentReport. It performs no I/O.
//
// overallSummary replaces the joined segment summaries when non-empty.
// documentKeywords is the output of a separate document-level keyword step
// and may be nil. The input slice is not modified.
func Aggregate(records []StructuredRecord, overallSummary string, documentKeywords []string) (DocumentReport, error) {
	segments := make([]StructuredRecord, len(records))
	copy(segments, records)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].SegmentID < segments[j].SegmentID
	})
	for i := 1; i < len(segments); i++ {
		if segments[i].SegmentID == segments[i-1].SegmentID {
			return DocumentReport{}, fmt.Errorf("%w: %d", ErrDuplicateSegment, segments[i].SegmentID)
		}
	}

	summaries := make([]string, 0, len(segments))
	actions := []string{}
	questions := []string{}
	var keywords []string
	for _, rec := range segments {
		if s := strings.TrimSpace(rec.Summary); s != "" {
			summaries = append(summaries, s)
		}
		actions = append(actions, rec.ActionItems...)
		questions = append(questions, rec.Questions...)
		keywords = append(keywords, rec.Keywords...)
	}

	overall := strings.TrimSpace(overallSummary)
	if overall == "" {
		overall = strings.Join(summaries, " ")
	}

	return DocumentReport{
		OverallSummary:   overall,
		DocumentKeywords: sortedKeywords(documentKeywords),
		Segments:         segments,
		AllActionItems:   actions,
		AllQuestions:     questions,
		AllKeywords:      sortedKeywords(keywords),
	}, nil
}

// dedupeFold trims items and drops case-insensitive duplicates, keeping the
// first spelling and the original order.
func dedupeFold(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		key := strings.ToLower(it)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func sortedKeywords(items []string) []string {
	out := dedupeFold(items)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
