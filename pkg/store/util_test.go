package store

import (
	"testing"

	"github.com/smartsum/backend/pkg/notes"

	"github.com/stretchr/testify/assert"
)

func TestChunkRange(t *testing.T) {
	var spans [][2]int
	err := ChunkRange(5, 2, func(start, end int) error {
		spans = append(spans, [2]int{start, end})
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, spans)
}

func TestEmbeddingsFromResult(t *testing.T) {
	res := &notes.Result{
		Report: notes.DocumentReport{Segments: []notes.StructuredRecord{
			{SegmentID: 1, Topic: "A", Summary: "a"},
			{SegmentID: 3, Topic: "C", Summary: "c"},
		}},
		SegmentVectors: map[int][]float32{1: {1, 0}, 2: {0, 1}},
	}

	got := EmbeddingsFromResult(res)
	assert.Equal(t, []SegmentEmbedding{{SegmentID: 1, Topic: "A", Summary: "a", Vector: []float32{1, 0}}}, got)
	assert.Nil(t, EmbeddingsFromResult(&notes.Result{}))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampLimit(0))
	assert.Equal(t, DefaultListLimit, ClampLimit(5000))
	assert.Equal(t, 7, ClampLimit(7))
}
