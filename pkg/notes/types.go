package notes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is a contiguous span of source text treated as one topic unit.
type Segment struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// StructuredRecord holds the notes extracted from one segment. Every list
// field is non-nil once the record leaves the Extractor.
type StructuredRecord struct {
	Topic            string   `json:"topic" yaml:"topic"`
	Summary          string   `json:"summary" yaml:"summary"`
	KeyPoints        []string `json:"key_points" yaml:"key_points"`
	ActionItems      []string `json:"action_items" yaml:"action_items"`
	Questions        []string `json:"questions" yaml:"questions"`
	Keywords         []string `json:"keywords" yaml:"keywords"`
	SegmentID        int      `json:"segment_id" yaml:"segment_id"`
	SecondarySummary string   `json:"secondary_summary,omitempty" yaml:"secondary_summary,omitempty"`
}

// ReportMetadata describes how a report was produced.
type ReportMetadata struct {
	Pipeline        string `json:"pipeline" yaml:"pipeline"`
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	SegmentsTotal   int    `json:"segments_total" yaml:"segments_total"`
	SegmentsDropped int    `json:"segments_dropped" yaml:"segments_dropped"`
}

// DocumentReport is the aggregate of all records for one input.
type DocumentReport struct {
	OverallSummary   string             `json:"overall_summary" yaml:"overall_summary"`
	DocumentKeywords []string           `json:"document_keywords" yaml:"document_keywords"`
	Segments         []StructuredRecord `json:"segments" yaml:"segments"`
	AllActionItems   []string           `json:"all_action_items" yaml:"all_action_items"`
	AllQuestions     []string           `json:"all_questions" yaml:"all_questions"`
	AllKeywords      []string           `json:"all_keywords" yaml:"all_keywords"`
	Metadata         ReportMetadata     `json:"metadata" yaml:"metadata"`
}

// KeywordQueryResult answers an ad-hoc keyword query. On failure only
// Error is set.
type KeywordQueryResult struct {
	Topic           string   `json:"topic,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	KeyPoints       []string `json:"key_points,omitempty"`
	RelatedConcepts []string `json:"related_concepts,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// MarshalJSON keeps the success shape stable: all four fields are present,
// lists as [] when empty. Error results carry only the error field.
func (r KeywordQueryResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	return json.Marshal(struct {
		Topic           string   `json:"topic"`
		Summary         string   `json:"summary"`
		KeyPoints       []string `json:"key_points"`
		RelatedConcepts []string `json:"related_concepts"`
	}{r.Topic, r.Summary, nonNil(r.KeyPoints), nonNil(r.RelatedConcepts)})
}

// Optional is the outcome of a best-effort stage: either a value or the
// reason the stage was skipped.
type Optional[T any] struct {
	Value   T
	Skipped bool
	Reason  string
}

// OK wraps a successful stage result.
func OK[T any](v T) Optional[T] {
	return Optional[T]{Value: v}
}

// Skip records why a stage produced nothing.
func Skip[T any](format string, args ...any) Optional[T] {
	return Optional[T]{Skipped: true, Reason: fmt.Sprintf(format, args...)}
}

// flexList accepts a JSON list of scalars or a single string. Models
// sometimes answer "key_points": "a; b" instead of a list.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it == nil {
				continue
			}
			s, ok := it.(string)
			if !ok {
				s = fmt.Sprint(it)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = splitInline(single)
	return nil
}

func splitInline(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(p), "-*•"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
