package notes

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"testing"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/ai/aitest"
	"github.com/smartsum/backend/pkg/splitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, tag string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = tag
	}
	return strings.Join(parts, " ") + "."
}

// alternating returns embeddings that are orthogonal between neighbours.
func alternating() *aitest.Stub {
	return &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			if i%2 == 0 {
				out[i] = []float32{1, 0}
			} else {
				out[i] = []float32{0, 1}
			}
		}
		return out, nil
	}}
}

func TestSegment_Empty(t *testing.T) {
	stub := &aitest.Stub{}
	got, err := NewSegmenter(stub, DefaultSegmenterConfig()).Segment(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, stub.EmbedCount())
}

func TestSegment_UniformSimilarityYieldsOneSegment(t *testing.T) {
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = []float32{0.9, 0.1 + float32(i)*0.01}
		}
		return out, nil
	}}

	got, err := NewSegmenter(stub, DefaultSegmenterConfig()).Segment(context.Background(), []string{"A.", "B.", "C."})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A. B. C.", got[0].Text)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 3, got[0].WordCount)
}

func TestSegment_MaxLengthForcesSplit(t *testing.T) {
	sentences := make([]string, 60)
	for i := range sentences {
		sentences[i] = words(10, "word")
	}

	got, err := NewSegmenter(&aitest.Stub{}, DefaultSegmenterConfig()).Segment(context.Background(), sentences)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, 500, got[0].WordCount)
	assert.Equal(t, 100, got[1].WordCount)
	assert.Equal(t, 2, got[1].Index)
}

func TestSegment_LengthBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sentences := make([]string, 400)
	for i := range sentences {
		n := 1 + rng.Intn(60)
		if i%97 == 0 {
			n = 650 // single sentence over the limit
		}
		sentences[i] = words(n, fmt.Sprintf("s%d", i))
	}
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = []float32{rng.Float32(), rng.Float32(), rng.Float32()}
		}
		return out, nil
	}}

	cfg := DefaultSegmenterConfig()
	got, err := NewSegmenter(stub, cfg).Segment(context.Background(), sentences)
	require.NoError(t, err)

	total := 0
	for _, seg := range got {
		total += seg.WordCount
		assert.Equal(t, splitter.WordCount(seg.Text), seg.WordCount)
		if seg.WordCount > cfg.MaxWords {
			assert.Contains(t, sentences, seg.Text, "only a single sentence may exceed the limit")
		}
	}
	want := 0
	for _, s := range sentences {
		want += splitter.WordCount(s)
	}
	assert.Equal(t, want, total, "no words lost or duplicated")
}

func TestSegment_MinLengthGuard(t *testing.T) {
	sentences := make([]string, 35)
	for i := range sentences {
		sentences[i] = words(10, "w")
	}

	got, err := NewSegmenter(alternating(), DefaultSegmenterConfig()).Segment(context.Background(), sentences)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, seg := range got[:len(got)-1] {
		assert.Equal(t, 100, seg.WordCount)
	}
	assert.Equal(t, 50, got[3].WordCount)
}

func TestSegment_ShortDissimilarRunNeverSplits(t *testing.T) {
	sentences := []string{words(5, "a"), words(5, "b"), words(5, "c"), words(5, "d")}

	got, err := NewSegmenter(alternating(), DefaultSegmenterConfig()).Segment(context.Background(), sentences)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 20, got[0].WordCount)
}

func TestSegment_EmbeddingFailureFallsBackToLength(t *testing.T) {
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		return nil, errors.New("embedding backend down")
	}}
	sentences := make([]string, 30)
	for i := range sentences {
		sentences[i] = words(20, "x")
	}

	got, vectors, err := NewSegmenter(stub, DefaultSegmenterConfig()).SegmentWithVectors(context.Background(), sentences)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 500, got[0].WordCount)
	assert.Nil(t, vectors)
}

func TestSegment_LongTranscriptEmbedsInBatches(t *testing.T) {
	limit := ai.DefaultEmbedBatchSize
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		if len(inputs) > limit {
			return nil, ai.NewCallError(http.StatusBadRequest, fmt.Errorf("too many inputs: %d", len(inputs)))
		}
		out := make([][]float32, len(inputs))
		for i := range inputs {
			if i%2 == 0 {
				out[i] = []float32{1, 0}
			} else {
				out[i] = []float32{0, 1}
			}
		}
		return out, nil
	}}
	sentences := make([]string, 2*limit+10)
	for i := range sentences {
		sentences[i] = words(5, "w")
	}

	cfg := SegmenterConfig{SimilarityThreshold: 0.5, MaxWords: 500, MinWords: 0}
	got, vectors, err := NewSegmenter(stub, cfg).SegmentWithVectors(context.Background(), sentences)
	require.NoError(t, err)
	assert.Len(t, got, len(sentences), "every topic change splits")
	assert.Len(t, vectors, len(sentences))
	assert.Equal(t, 3, stub.EmbedCount())
}

func TestSegment_FatalEmbeddingErrorIsReturned(t *testing.T) {
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		return nil, ai.NewCallError(http.StatusUnauthorized, errors.New("invalid api key"))
	}}

	_, err := NewSegmenter(stub, DefaultSegmenterConfig()).Segment(context.Background(), []string{"A."})
	require.Error(t, err)
	assert.True(t, ai.IsFatal(err))
}

func TestSegmentWithVectors_MeanPerSegment(t *testing.T) {
	sentences := []string{words(60, "a"), words(60, "b"), words(60, "c")}
	stub := &aitest.Stub{Embed: func(ctx context.Context, inputs []string) ([][]float32, error) {
		return [][]float32{{1, 0}, {1, 0}, {0, 1}}, nil
	}}

	got, vectors, err := NewSegmenter(stub, DefaultSegmenterConfig()).SegmentWithVectors(context.Background(), sentences)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
