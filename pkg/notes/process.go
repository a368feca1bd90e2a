package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/splitter"
)

// PipelineName is recorded in every report's metadata.
const PipelineName = "semantic-segmentation"

// Options tune one Process run. Use DefaultOptions as the starting point.
type Options struct {
	Segmentation SegmenterConfig

	Delay             time.Duration
	MaxRetries        int
	RateLimitCooldown time.Duration
	Workers           int

	// Mindmap also renders the report as a Mermaid mindmap.
	Mindmap bool
	// MindmapConcept overrides the concept derived from segment topics.
	MindmapConcept string
	// OverallSummary replaces the joined segment summaries with a
	// document-level summary call that also yields document keywords.
	OverallSummary bool
	// SecondarySummary adds per-segment summaries from the secondary model.
	SecondarySummary bool
}

// DefaultOptions returns the default thresholds, a one second delay, three
// retries, sequential extraction and a mindmap.
func DefaultOptions() Options {
	return Options{
		Segmentation:      DefaultSegmenterConfig(),
		Delay:             time.Second,
		MaxRetries:        3,
		RateLimitCooldown: 10 * time.Second,
		Workers:           1,
		Mindmap:           true,
	}
}

// Result is the outcome of Process.
type Result struct {
	Report  DocumentReport
	Mindmap Optional[string]
	Batch   BatchSummary
	// SegmentVectors maps segment ids of extracted records to their mean
	// sentence embedding. Nil when embeddings were unavailable.
	SegmentVectors map[int][]float32
}

// ProcessorParams wires a Processor's collaborators.
type ProcessorParams struct {
	Generator ai.Generator
	// Embedder may be nil; segmentation then splits by length only.
	Embedder ai.Embedder
	// Splitter defaults to the English sentence splitter.
	Splitter splitter.Splitter

	// Model overrides the generator's default chat model.
	Model string
	// SecondaryModel enables Options.SecondarySummary.
	SecondaryModel string
}

// Processor runs the text-to-notes pipeline. It holds no per-run state and
// is safe for concurrent use.
type Processor struct {
	gen            ai.Generator
	embedder       ai.Embedder
	splitter       splitter.Splitter
	model          string
	secondaryModel string
}

// NewProcessor returns a Processor from params.
func NewProcessor(params ProcessorParams) *Processor {
	sp := params.Splitter
	if sp == nil {
		sp = splitter.NewSentenceSplitter()
	}
	return &Processor{
		gen:            params.Generator,
		embedder:       params.Embedder,
		splitter:       sp,
		model:          params.Model,
		secondaryModel: params.SecondaryModel,
	}
}

// Process turns raw text into a DocumentReport.
//
// It fails only on empty input, on a fatal collaborator error (e.g.
// rejected credentials) or when ctx ends. Segments that keep failing are
// dropped from the report; the optional stages degrade silently.
func (p *Processor) Process(ctx context.Context, rawText string, opts Options) (*Result, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyInput
	}
	if p.gen == nil {
		return nil, ai.Fatal(fmt.Errorf("generation client not configured"))
	}

	sentences, err := p.splitter.Split(rawText)
	if err != nil {
		return nil, fmt.Errorf("split sentences: %w", err)
	}
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	segmenter := NewSegmenter(p.embedder, opts.Segmentation)
	segments, vectors, err := segmenter.SegmentWithVectors(ctx, sentences)
	if err != nil {
		return nil, err
	}
	logger.Info("[Pipeline] Segmented text", "sentences", len(sentences), "segments", len(segments))

	extractor := NewExtractor(p.gen, ExtractorConfig{
		Model:             p.model,
		Delay:             opts.Delay,
		MaxRetries:        opts.MaxRetries,
		RateLimitCooldown: opts.RateLimitCooldown,
		Workers:           opts.Workers,
	})
	records, batch, err := extractor.ExtractAll(ctx, segments)
	if err != nil {
		return nil, err
	}
	if batch.Skipped > 0 {
		logger.Warn("[Pipeline] Segments dropped after retries", "skipped", batch.Skipped, "ids", batch.SkippedIDs)
	}

	summarizer := NewSummarizer(p.gen, p.model, p.secondaryModel)
	if opts.SecondarySummary {
		if res := summarizer.Secondary(ctx, records, segments); res.Skipped {
			logger.Debug("[Pipeline] Secondary summaries skipped", "reason", res.Reason)
		} else {
			records = res.Value
		}
	}

	overall := ""
	var docKeywords []string
	if opts.OverallSummary {
		if res := summarizer.Document(ctx, records); !res.Skipped {
			overall = res.Value.OverallSummary
			docKeywords = res.Value.Keywords
		}
	}

	report, err := Aggregate(records, overall, docKeywords)
	if err != nil {
		return nil, err
	}
	report.Metadata = ReportMetadata{
		Pipeline:        PipelineName,
		Model:           p.model,
		SegmentsTotal:   len(segments),
		SegmentsDropped: len(segments) - len(records),
	}

	result := &Result{
		Report:  report,
		Mindmap: Skip[string]("not requested"),
		Batch:   batch,
	}

	switch {
	case !opts.Mindmap:
	case len(report.Segments) == 0:
		result.Mindmap = Skip[string]("no segments")
	default:
		concept := opts.MindmapConcept
		if strings.TrimSpace(concept) == "" {
			concept = ConceptFromReport(report)
		}
		result.Mindmap = NewMindmapper(p.gen, p.model).Generate(ctx, concept)
	}

	if vectors != nil {
		result.SegmentVectors = make(map[int][]float32, len(records))
		for _, rec := range records {
			if idx := rec.SegmentID - 1; idx >= 0 && idx < len(vectors) && vectors[idx] != nil {
				result.SegmentVectors[rec.SegmentID] = vectors[idx]
			}
		}
	}

	return result, nil
}

// Query runs a keyword-focused extraction against text.
func (p *Processor) Query(ctx context.Context, text, keyword string) KeywordQueryResult {
	return NewKeywordExtractor(p.gen, p.model).Query(ctx, text, keyword)
}
