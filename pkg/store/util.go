package store

import (
	"time"

	"github.com/smartsum/backend/pkg/notes"
)

// DefaultListLimit caps ListDocuments when no positive limit is given.
const DefaultListLimit = 100

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// EmbeddingsFromResult pairs the extracted records of a run with their
// segment vectors. Records without a vector are left out.
func EmbeddingsFromResult(res *notes.Result) []SegmentEmbedding {
	if res == nil || len(res.SegmentVectors) == 0 {
		return nil
	}
	out := make([]SegmentEmbedding, 0, len(res.Report.Segments))
	for _, rec := range res.Report.Segments {
		vec, ok := res.SegmentVectors[rec.SegmentID]
		if !ok || len(vec) == 0 {
			continue
		}
		out = append(out, SegmentEmbedding{
			SegmentID: rec.SegmentID,
			Topic:     rec.Topic,
			Summary:   rec.Summary,
			Vector:    vec,
		})
	}
	return out
}

// Now returns the current time truncated to microseconds, the precision
// both backends keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ClampLimit applies DefaultListLimit to non-positive limits.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
