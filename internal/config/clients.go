package config

import (
	"fmt"

	"github.com/smartsum/backend/pkg/ai"
	oai "github.com/smartsum/backend/pkg/ai/ollama"
	gai "github.com/smartsum/backend/pkg/ai/openai"
	"github.com/smartsum/backend/pkg/notes"
)

// NewAIClient builds the client selected by AI_ADAPTER.
func NewAIClient(cfg AIConfig) (ai.Client, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewNotesOllamaClient(oai.NewNotesOllamaClientParams{
			ChatModel:             cfg.ChatModel,
			EmbeddingModel:        cfg.EmbedModel,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			Timeout:               cfg.Timeout,
			MaxConcurrentRequests: cfg.ParallelReq,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai", "":
		return gai.NewNotesOpenAIClient(gai.NewNotesOpenAIClientParams{
			ChatModel:             cfg.ChatModel,
			EmbeddingModel:        cfg.EmbedModel,
			AudioModel:            cfg.AudioModel,
			ChatURL:               cfg.ChatURL,
			ChatKey:               cfg.ChatKey,
			EmbeddingURL:          cfg.EmbedURL,
			EmbeddingKey:          cfg.EmbedKey,
			AudioURL:              cfg.AudioURL,
			AudioKey:              cfg.AudioKey,
			Timeout:               cfg.Timeout,
			RequestsPerSecond:     cfg.RPS,
			MaxConcurrentRequests: cfg.ParallelReq,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", cfg.Adapter)
	}
}

// Embedder returns client as an embedder when an embedding model is
// configured, nil otherwise. Segmentation then splits by length only.
func (c AIConfig) Embedder(client ai.Client) ai.Embedder {
	if c.EmbedModel == "" {
		return nil
	}
	return client
}

// Options converts the pipeline settings into processing options.
func (p PipelineConfig) Options() notes.Options {
	opts := notes.DefaultOptions()
	opts.Segmentation = notes.SegmenterConfig{
		SimilarityThreshold: p.SimilarityThreshold,
		MaxWords:            p.MaxWords,
		MinWords:            p.MinWords,
	}
	opts.Delay = p.Delay
	opts.MaxRetries = p.MaxRetries
	opts.Workers = p.Workers
	opts.RateLimitCooldown = p.RateLimitCooldown
	opts.Mindmap = p.Mindmap
	opts.OverallSummary = p.OverallSummary
	return opts
}
