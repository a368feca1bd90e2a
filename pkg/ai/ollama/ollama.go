package ollama

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// NotesOllamaClient implements the ai.Client interface using Ollama as the backend.
// It supports text generation and embeddings via locally-hosted models.
type NotesOllamaClient struct {
	chatModel      string
	embeddingModel string

	timeout time.Duration
	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewNotesOllamaClientParams contains configuration options for creating a new NotesOllamaClient.
type NewNotesOllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string

	BaseURL string
	ApiKey  string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewNotesOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or DefaultBaseURL if empty).
func NewNotesOllamaClient(
	params NewNotesOllamaClientParams,
) (*NotesOllamaClient, error) {
	base := params.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: headers,
			rt:      http.DefaultTransport,
		},
	}

	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 1
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &NotesOllamaClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,

		timeout: timeout,
		reqLock: semaphore.NewWeighted(parallel),

		Client: api.NewClient(u, httpClient),
	}, nil
}

var _ ai.Client = (*NotesOllamaClient)(nil)
