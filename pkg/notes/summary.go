package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
)

// DocumentSummary is the output of the document-level summary step.
type DocumentSummary struct {
	OverallSummary string   `json:"overall_summary"`
	Keywords       []string `json:"keywords"`
}

type documentSummaryPayload struct {
	OverallSummary string   `json:"overall_summary"`
	Keywords       flexList `json:"keywords"`
}

// Summarizer runs the optional summary stages.
type Summarizer struct {
	gen            ai.Generator
	model          string
	secondaryModel string
	maxTries       int
}

// NewSummarizer returns a Summarizer. secondaryModel selects the model used
// for per-segment secondary summaries; empty disables that stage.
func NewSummarizer(gen ai.Generator, model, secondaryModel string) *Summarizer {
	return &Summarizer{gen: gen, model: model, secondaryModel: secondaryModel, maxTries: 2}
}

// Document condenses the records into one summary plus document keywords.
func (s *Summarizer) Document(ctx context.Context, records []StructuredRecord) Optional[DocumentSummary] {
	if len(records) == 0 {
		return Skip[DocumentSummary]("no segments")
	}
	if s.gen == nil {
		return Skip[DocumentSummary]("generation client not configured")
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%d. %s: %s\n", rec.SegmentID, rec.Topic, rec.Summary)
	}
	prompt := fmt.Sprintf(ai.OverallSummaryPrompt, b.String())

	out, err := util.RetryWithBackoff(ctx, s.maxTries, 0, ai.IsFatal, func(ctx context.Context) (DocumentSummary, error) {
		raw, err := s.gen.GenerateCompletion(
			ctx,
			prompt,
			ai.WithModel(s.model),
			ai.WithTemperature(extractTemperature),
			ai.WithJSONSchema("document_summary", "Summary and keywords of a whole document", documentSummaryPayload{}),
		)
		if err != nil {
			return DocumentSummary{}, err
		}
		var payload documentSummaryPayload
		if err := ai.UnmarshalFlexible(ai.StripCodeFence(raw), &payload); err != nil {
			return DocumentSummary{}, err
		}
		if strings.TrimSpace(payload.OverallSummary) == "" {
			return DocumentSummary{}, fmt.Errorf("empty overall summary")
		}
		return DocumentSummary{
			OverallSummary: strings.TrimSpace(payload.OverallSummary),
			Keywords:       dedupeFold(payload.Keywords),
		}, nil
	})
	if err != nil {
		logger.Warn("[Summary] Document summary failed, using segment summaries", "err", err)
		return Skip[DocumentSummary]("document summary failed: %v", err)
	}
	return OK(out)
}

// Secondary returns a copy of records in which every record whose segment
// text is available carries an abstractive summary from the secondary
// model. The input is not modified; failures leave the field empty.
func (s *Summarizer) Secondary(ctx context.Context, records []StructuredRecord, segments []Segment) Optional[[]StructuredRecord] {
	if s.secondaryModel == "" {
		return Skip[[]StructuredRecord]("no secondary model configured")
	}
	if s.gen == nil {
		return Skip[[]StructuredRecord]("generation client not configured")
	}

	texts := make(map[int]string, len(segments))
	for _, seg := range segments {
		texts[seg.Index] = seg.Text
	}

	out := make([]StructuredRecord, len(records))
	copy(out, records)
	done := 0
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		text, ok := texts[out[i].SegmentID]
		if !ok {
			continue
		}
		raw, err := s.gen.GenerateCompletion(
			ctx,
			fmt.Sprintf(ai.SecondarySummaryPrompt, ai.Truncate(text, maxPromptRunes)),
			ai.WithModel(s.secondaryModel),
			ai.WithTemperature(extractTemperature),
		)
		if err != nil {
			logger.Warn("[Summary] Secondary summary failed", "segment_id", out[i].SegmentID, "err", err)
			if ai.IsFatal(err) {
				break
			}
			continue
		}
		out[i].SecondarySummary = strings.TrimSpace(ai.StripCodeFence(raw))
		done++
	}
	if done == 0 {
		return Skip[[]StructuredRecord]("no secondary summaries produced")
	}
	logger.Debug("[Summary] Secondary summaries added", "records", done)
	return OK(out)
}
