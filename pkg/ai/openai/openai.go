package openai

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// NotesOpenAIClient talks to any OpenAI-compatible API. Chat, embedding and
// audio requests may target different endpoints and keys.
//
// A NotesOpenAIClient should be created using NewNotesOpenAIClient.
type NotesOpenAIClient struct {
	chatModel      string
	embeddingModel string
	audioModel     string

	timeout time.Duration
	limiter *rate.Limiter
	reqLock *semaphore.Weighted

	// schemaUnsupported is set once the chat endpoint rejects json_schema.
	schemaUnsupported atomic.Bool

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
	AudioClient     *openai.Client
}

// NewNotesOpenAIClientParams defines the configuration parameters for
// creating a new NotesOpenAIClient.
//
// Empty URLs fall back to DefaultBaseURL. A capability whose key is empty is
// left unconfigured and its calls fail with a fatal error.
type NewNotesOpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string
	AudioModel     string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string
	AudioURL     string
	AudioKey     string

	// Timeout bounds every request. Zero means one minute.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	// MaxConcurrentRequests bounds in-flight requests. Zero means 4.
	MaxConcurrentRequests int64
}

// NewNotesOpenAIClient creates a client from params.
//
// Example:
//
//	client := openai.NewNotesOpenAIClient(openai.NewNotesOpenAIClientParams{
//		ChatModel:  "llama-3.3-70b-versatile",
//		AudioModel: "whisper-large-v3-turbo",
//		ChatKey:    os.Getenv("GROQ_API_KEY"),
//		AudioKey:   os.Getenv("GROQ_API_KEY"),
//	})
func NewNotesOpenAIClient(params NewNotesOpenAIClientParams) *NotesOpenAIClient {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 4
	}

	var limiter *rate.Limiter
	if params.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.RequestsPerSecond), 1)
	}

	return &NotesOpenAIClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		audioModel:     params.AudioModel,

		timeout: timeout,
		limiter: limiter,
		reqLock: semaphore.NewWeighted(parallel),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
		AudioClient:     newOpenaiClient(params.AudioURL, params.AudioKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Retries are owned by the caller's backoff policy.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &client
}

// acquire waits for the rate limiter and a request slot. The returned
// context carries the request timeout; release must always be called.
func (c *NotesOpenAIClient) acquire(ctx context.Context) (context.Context, func(), error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	if c.limiter != nil {
		if err := c.limiter.Wait(rCtx); err != nil {
			cancel()
			return nil, nil, classify(err)
		}
	}
	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		cancel()
		return nil, nil, classify(err)
	}
	return rCtx, func() {
		c.reqLock.Release(1)
		cancel()
	}, nil
}

var _ ai.Client = (*NotesOpenAIClient)(nil)
