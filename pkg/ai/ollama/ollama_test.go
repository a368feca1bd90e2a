package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatBody = `{"model":"llama3","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"topic\":\"Intro\"}"},"done":true,"prompt_eval_count":12,"eval_count":5,"total_duration":1000000}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *NotesOllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewNotesOllamaClient(NewNotesOllamaClientParams{
		ChatModel:      "llama3",
		EmbeddingModel: "nomic-embed-text",
		BaseURL:        srv.URL,
		ApiKey:         "test-key",
		Timeout:        5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestGenerateCompletion_SendsOptions(t *testing.T) {
	var got map[string]any
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatBody)
	})

	out, err := client.GenerateCompletion(
		context.Background(),
		"hello",
		ai.WithMaxTokens(700),
		ai.WithJSONResponse(),
	)
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"Intro"}`, out)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, "json", got["format"])
	opts, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 700, opts["num_predict"])

	m := client.GetMetrics()
	assert.Equal(t, 17, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)
}

func TestGenerateCompletion_SendsJSONSchema(t *testing.T) {
	type note struct {
		Topic string `json:"topic"`
	}
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatBody)
	})

	_, err := client.GenerateCompletion(context.Background(), "hello", ai.WithJSONSchema("note", "", note{}))
	require.NoError(t, err)
	format, ok := got["format"].(map[string]any)
	require.True(t, ok)
	props, ok := format["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "topic")
}

func TestGenerateCompletion_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ai.ErrorKind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ai.KindFatal},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ai.KindRateLimited},
		{name: "server error", status: http.StatusInternalServerError, want: ai.KindTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"error":"nope"}`)
			})

			_, err := client.GenerateCompletion(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tc.want, ai.Classify(err))
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestGenerateEmbeddings_SkipsBlank(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"nomic-embed-text","embeddings":[[1,0],[0,1]],"prompt_eval_count":4}`)
	})

	out, err := client.GenerateEmbeddings(context.Background(), []string{"first", " ", "second"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{1, 0}, out[0])
	assert.Nil(t, out[1])
	assert.Equal(t, []float32{0, 1}, out[2])
	assert.Equal(t, []any{"first", "second"}, got["input"])
}

func TestGenerateEmbeddings_UnauthorizedIsFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
	})

	_, err := client.GenerateEmbeddings(context.Background(), []string{"first"})
	require.Error(t, err)
	assert.True(t, ai.IsFatal(err))
}

func TestContextSize(t *testing.T) {
	n, err := contextSize([]string{"be brief"}, "hello world", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, defaultContext)

	long := strings.Repeat("word ", 8000)
	m, err := contextSize(nil, long, 10)
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	assert.Greater(t, m, defaultContext)
	assert.LessOrEqual(t, m, 210+len(long))
}

func TestEncoding_LoadedOnce(t *testing.T) {
	first, err := encoding()
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	second, _ := encoding()
	assert.Same(t, first, second)
}
