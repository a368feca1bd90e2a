package ai

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultEmbedBatchSize keeps embedding requests well below the input-array
// and token limits of OpenAI-compatible endpoints.
const DefaultEmbedBatchSize = 256

// GenerateEmbeddingsChunked splits inputs into batches of at most size and
// embeds them concurrently. The result is index-aligned with inputs. The
// embedder's own request limiter bounds actual parallelism.
func GenerateEmbeddingsChunked(ctx context.Context, e Embedder, inputs []string, size int) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if size <= 0 {
		size = DefaultEmbedBatchSize
	}

	out := make([][]float32, len(inputs))
	eg, ectx := errgroup.WithContext(ctx)
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		eg.Go(func() error {
			res, err := e.GenerateEmbeddings(ectx, inputs[start:end])
			if err != nil {
				return err
			}
			if len(res) != end-start {
				return fmt.Errorf("embedding batch size mismatch: got %d want %d", len(res), end-start)
			}
			copy(out[start:end], res)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
