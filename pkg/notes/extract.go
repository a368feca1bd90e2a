package notes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// FallbackTopic marks a record built from unparseable model output.
	FallbackTopic = "Parsing Error"

	extractTemperature = 0.3
	maxPromptRunes     = 3000
	fallbackRunes      = 300
)

// ExtractorConfig controls the batch retry policy.
type ExtractorConfig struct {
	// Model overrides the client's default chat model.
	Model string
	// Delay is slept after each successful segment; transient failures wait twice as long.
	Delay time.Duration
	// MaxRetries is the number of attempts per segment. Zero means 3.
	MaxRetries int
	// RateLimitCooldown is waited after a throttled attempt. Zero means 10s.
	RateLimitCooldown time.Duration
	// Workers > 1 extracts segments concurrently.
	Workers int
}

// BatchSummary counts the outcome of ExtractAll.
type BatchSummary struct {
	Extracted  int   `json:"extracted"`
	Skipped    int   `json:"skipped"`
	SkippedIDs []int `json:"skipped_ids,omitempty"`
	Attempts   int   `json:"attempts"`
}

// Extractor turns segments into structured records through a Generator.
type Extractor struct {
	gen   ai.Generator
	cfg   ExtractorConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExtractor returns an Extractor using gen.
func NewExtractor(gen ai.Generator, cfg ExtractorConfig) *Extractor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = 10 * time.Second
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Extractor{gen: gen, cfg: cfg, sleep: util.SleepContext}
}

type recordPayload struct {
	Topic       string   `json:"topic"`
	Summary     string   `json:"summary"`
	KeyPoints   flexList `json:"key_points"`
	ActionItems flexList `json:"action_items"`
	Questions   flexList `json:"questions"`
	Keywords    flexList `json:"keywords"`
}

// Extract makes a single extraction call for seg. Malformed model output is
// never an error: it yields a fallback record. Only call failures are
// returned, for the batch driver to classify.
func (e *Extractor) Extract(ctx context.Context, seg Segment) (StructuredRecord, error) {
	prompt := fmt.Sprintf(ai.ExtractNotesPrompt, ai.Truncate(seg.Text, maxPromptRunes))
	raw, err := e.gen.GenerateCompletion(
		ctx,
		prompt,
		ai.WithModel(e.cfg.Model),
		ai.WithTemperature(extractTemperature),
		ai.WithJSONSchema("structured_record", "Structured notes for one transcript segment", recordPayload{}),
	)
	if err != nil {
		return StructuredRecord{}, err
	}

	rec, err := parseRecord(raw, seg.Index)
	if err != nil {
		logger.Warn("[Extractor] Falling back on malformed output", "segment_id", seg.Index, "err", err)
		return fallbackRecord(seg), nil
	}
	return rec, nil
}

func parseRecord(raw string, segmentID int) (StructuredRecord, error) {
	var payload recordPayload
	if err := ai.UnmarshalFlexible(ai.StripCodeFence(raw), &payload); err != nil {
		return StructuredRecord{}, err
	}

	rec := StructuredRecord{
		Topic:       strings.TrimSpace(payload.Topic),
		Summary:     strings.TrimSpace(payload.Summary),
		KeyPoints:   nonNil(payload.KeyPoints),
		ActionItems: nonNil(payload.ActionItems),
		Questions:   nonNil(payload.Questions),
		Keywords:    dedupeFold(payload.Keywords),
		SegmentID:   segmentID,
	}
	if rec.Topic == "" && rec.Summary == "" {
		return StructuredRecord{}, errors.New("response has neither topic nor summary")
	}
	return rec, nil
}

func fallbackRecord(seg Segment) StructuredRecord {
	summary := strings.TrimSpace(ai.Truncate(seg.Text, fallbackRunes))
	if summary == "" {
		summary = "(empty segment)"
	}
	return StructuredRecord{
		Topic:       FallbackTopic,
		Summary:     summary,
		KeyPoints:   []string{},
		ActionItems: []string{},
		Questions:   []string{},
		Keywords:    []string{},
		SegmentID:   seg.Index,
	}
}

// ExtractAll extracts every segment, retrying per segment.
//
// A fatal error aborts the whole batch and is returned wrapped in
// ErrBatchAborted together with the records extracted so far. Throttled
// attempts wait RateLimitCooldown, other failures wait twice Delay.
// Segments that fail every attempt are skipped. The returned records are
// ordered by segment id.
func (e *Extractor) ExtractAll(ctx context.Context, segments []Segment) ([]StructuredRecord, BatchSummary, error) {
	if e.cfg.Workers > 1 && len(segments) > 1 {
		return e.extractConcurrent(ctx, segments)
	}

	records := make([]StructuredRecord, 0, len(segments))
	var summary BatchSummary
	for i, seg := range segments {
		rec, attempts, err := e.extractWithRetry(ctx, seg)
		summary.Attempts += attempts
		if err != nil {
			if !errors.Is(err, ErrRetriesExhausted) {
				return records, summary, err
			}
			summary.Skipped++
			summary.SkippedIDs = append(summary.SkippedIDs, seg.Index)
			continue
		}

		records = append(records, rec)
		summary.Extracted++
		if i < len(segments)-1 {
			if err := e.sleep(ctx, e.cfg.Delay); err != nil {
				return records, summary, err
			}
		}
	}
	return records, summary, nil
}

func (e *Extractor) extractConcurrent(ctx context.Context, segments []Segment) ([]StructuredRecord, BatchSummary, error) {
	slots := make([]*StructuredRecord, len(segments))
	var (
		mu      sync.Mutex
		summary BatchSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, seg := range segments {
		g.Go(func() error {
			rec, attempts, err := e.extractWithRetry(gctx, seg)

			mu.Lock()
			summary.Attempts += attempts
			switch {
			case err == nil:
				slots[i] = &rec
				summary.Extracted++
			case errors.Is(err, ErrRetriesExhausted):
				summary.Skipped++
				summary.SkippedIDs = append(summary.SkippedIDs, seg.Index)
			}
			mu.Unlock()

			if err != nil && !errors.Is(err, ErrRetriesExhausted) {
				return err
			}
			if err == nil {
				return e.sleep(gctx, e.cfg.Delay)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	records := make([]StructuredRecord, 0, len(segments))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	slices.Sort(summary.SkippedIDs)
	return records, summary, waitErr
}

// extractWithRetry returns the record, the number of attempts made and an
// error that is either ErrRetriesExhausted, ErrBatchAborted or a context error.
func (e *Extractor) extractWithRetry(ctx context.Context, seg Segment) (StructuredRecord, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return StructuredRecord{}, attempts, err
		}

		attempts++
		rec, err := e.Extract(ctx, seg)
		if err == nil {
			return rec, attempts, nil
		}
		if ctx.Err() != nil {
			return StructuredRecord{}, attempts, ctx.Err()
		}
		lastErr = err

		kind := ai.Classify(err)
		if kind == ai.KindFatal {
			logger.Error("[Extractor] Fatal error, aborting batch", "segment_id", seg.Index, "err", err)
			return StructuredRecord{}, attempts, fmt.Errorf("%w: segment %d: %w", ErrBatchAborted, seg.Index, err)
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		wait := 2 * e.cfg.Delay
		if kind == ai.KindRateLimited {
			wait = e.cfg.RateLimitCooldown
		}
		logger.Warn("[Extractor] Attempt failed, retrying",
			"segment_id", seg.Index,
			"attempt", attempt,
			"kind", kind.String(),
			"wait", wait,
			"err", err,
		)
		if err := e.sleep(ctx, wait); err != nil {
			return StructuredRecord{}, attempts, err
		}
	}

	logger.Warn("[Extractor] Skipping segment", "segment_id", seg.Index, "attempts", attempts, "err", lastErr)
	return StructuredRecord{}, attempts, fmt.Errorf("%w: segment %d: %w", ErrRetriesExhausted, seg.Index, lastErr)
}
