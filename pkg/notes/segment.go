package notes

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/splitter"
)

// SegmenterConfig bounds segment size and sets the topic-drift threshold.
type SegmenterConfig struct {
	SimilarityThreshold float64
	MaxWords            int
	MinWords            int
}

// DefaultSegmenterConfig returns threshold 0.5, max 500 words, min 100 words.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SimilarityThreshold: 0.5,
		MaxWords:            500,
		MinWords:            100,
	}
}

func (c SegmenterConfig) withDefaults() SegmenterConfig {
	d := DefaultSegmenterConfig()
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.MaxWords <= 0 {
		c.MaxWords = d.MaxWords
	}
	if c.MinWords < 0 {
		c.MinWords = d.MinWords
	}
	return c
}

// Segmenter groups consecutive sentences into topic-coherent segments.
type Segmenter struct {
	embedder ai.Embedder
	cfg      SegmenterConfig
}

// NewSegmenter returns a Segmenter. A nil embedder yields length-only
// segmentation.
func NewSegmenter(embedder ai.Embedder, cfg SegmenterConfig) *Segmenter {
	return &Segmenter{embedder: embedder, cfg: cfg.withDefaults()}
}

// Segment splits sentences greedily, left to right.
//
// A sentence that would push the running word count past MaxWords always
// starts a new segment. Otherwise a new segment starts when the similarity
// to the previous sentence drops below the threshold and the current
// segment already holds at least MinWords words.
func (s *Segmenter) Segment(ctx context.Context, sentences []string) ([]Segment, error) {
	segments, _, err := s.SegmentWithVectors(ctx, sentences)
	return segments, err
}

// SegmentWithVectors is Segment that also returns the mean sentence vector
// of every segment, index-aligned with the segments. Vectors are nil when
// no embeddings were available.
func (s *Segmenter) SegmentWithVectors(ctx context.Context, sentences []string) ([]Segment, [][]float32, error) {
	if len(sentences) == 0 {
		return []Segment{}, nil, nil
	}

	vectors, err := s.embed(ctx, sentences)
	if err != nil {
		return nil, nil, err
	}

	var (
		segments []Segment
		means    [][]float32
		current  []string
		members  []int
		words    int
	)
	emit := func() {
		segments = append(segments, Segment{
			Index:     len(segments) + 1,
			Text:      strings.Join(current, " "),
			WordCount: words,
		})
		means = append(means, meanVector(vectors, members))
		current, members, words = nil, nil, 0
	}

	for i, sentence := range sentences {
		w := splitter.WordCount(sentence)
		if i > 0 {
			split := false
			if words+w > s.cfg.MaxWords {
				split = true
			} else if vectors != nil && words >= s.cfg.MinWords {
				split = CosineSimilarity(vectors[i-1], vectors[i]) < s.cfg.SimilarityThreshold
			}
			if split {
				emit()
			}
		}
		current = append(current, sentence)
		members = append(members, i)
		words += w
	}
	if len(current) > 0 {
		emit()
	}

	if vectors == nil {
		means = nil
	}
	return segments, means, nil
}

// embed returns one vector per sentence, or nil to fall back to length-only
// segmentation. Only fatal embedder errors are returned.
func (s *Segmenter) embed(ctx context.Context, sentences []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}

	vectors, err := ai.GenerateEmbeddingsChunked(ctx, s.embedder, sentences, ai.DefaultEmbedBatchSize)
	if err != nil {
		if ai.IsFatal(err) {
			return nil, fmt.Errorf("embed sentences: %w", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("[Segmenter] Embedding failed, splitting by length only", "err", err)
		return nil, nil
	}
	if len(vectors) != len(sentences) {
		logger.Warn("[Segmenter] Embedding count mismatch, splitting by length only", "got", len(vectors), "want", len(sentences))
		return nil, nil
	}
	return vectors, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths, empty vectors and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func meanVector(vectors [][]float32, members []int) []float32 {
	if vectors == nil || len(members) == 0 {
		return nil
	}

	var mean []float32
	n := 0
	for _, idx := range members {
		v := vectors[idx]
		if len(v) == 0 {
			continue
		}
		if mean == nil {
			mean = make([]float32, len(v))
		}
		if len(v) != len(mean) {
			continue
		}
		for j := range v {
			mean[j] += v[j]
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for j := range mean {
		mean[j] /= float32(n)
	}
	return mean
}
