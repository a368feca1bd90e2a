package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.3-70b-versatile",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"topic\":\"Intro\"}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *NotesOpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNotesOpenAIClient(NewNotesOpenAIClientParams{
		ChatModel:      "llama-3.3-70b-versatile",
		EmbeddingModel: "embed",
		ChatURL:        srv.URL,
		ChatKey:        "test-key",
		EmbeddingURL:   srv.URL,
		EmbeddingKey:   "test-key",
		Timeout:        5 * time.Second,
	})
}

func TestGenerateCompletion_SendsOptions(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	out, err := client.GenerateCompletion(
		context.Background(),
		"hello",
		ai.WithTemperature(0.3),
		ai.WithMaxTokens(700),
		ai.WithJSONResponse(),
		ai.WithSystemPrompts("be brief"),
	)
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"Intro"}`, out)

	assert.Equal(t, "llama-3.3-70b-versatile", got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-9)
	assert.EqualValues(t, 700, got["max_tokens"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)

	m := client.GetMetrics()
	assert.Equal(t, 17, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)
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
				_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"error"}}`)
			})

			_, err := client.GenerateCompletion(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tc.want, ai.Classify(err))
			assert.EqualValues(t, 1, calls.Load(), "sdk retries must be disabled")
		})
	}
}

func TestGenerateCompletion_MissingKeyIsFatal(t *testing.T) {
	client := NewNotesOpenAIClient(NewNotesOpenAIClientParams{ChatModel: "m"})

	_, err := client.GenerateCompletion(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, ai.IsFatal(err))
}

func TestGenerateEmbeddings_PreservesOrderAndSkipsBlank(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Returned out of order on purpose.
		_, _ = io.WriteString(w, `{
  "object": "list",
  "model": "embed",
  "data": [
    {"object": "embedding", "index": 1, "embedding": [0, 1]},
    {"object": "embedding", "index": 0, "embedding": [1, 0]}
  ],
  "usage": {"prompt_tokens": 4, "total_tokens": 4}
}`)
	})

	out, err := client.GenerateEmbeddings(context.Background(), []string{"first", "  ", "second"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{1, 0}, out[0])
	assert.Nil(t, out[1])
	assert.Equal(t, []float32{0, 1}, out[2])
}

type notePayload struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
}

func TestGenerateCompletion_SendsJSONSchema(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	_, err := client.GenerateCompletion(context.Background(), "hello",
		ai.WithJSONSchema("note", "one note", notePayload{}))
	require.NoError(t, err)

	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema, ok := format["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "note", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])
	schema, ok := jsonSchema["schema"].(map[string]any)
	require.True(t, ok)
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "topic")
	assert.Contains(t, props, "keywords")
}

func TestGenerateCompletion_SchemaRejectedFallsBackToJSONObject(t *testing.T) {
	var formats []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		format, _ := body["response_format"].(map[string]any)
		typ, _ := format["type"].(string)
		formats = append(formats, typ)

		w.Header().Set("Content-Type", "application/json")
		if typ == "json_schema" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"json_schema not supported","type":"invalid_request_error"}}`)
			return
		}
		_, _ = io.WriteString(w, completionBody)
	})

	for range 2 {
		out, err := client.GenerateCompletion(context.Background(), "hello",
			ai.WithJSONSchema("note", "one note", notePayload{}))
		require.NoError(t, err)
		assert.Equal(t, `{"topic":"Intro"}`, out)
	}
	assert.Equal(t, []string{"json_schema", "json_object", "json_object"}, formats)
}
