package ollama

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const defaultContext = 4096

// GenerateCompletion sends a single-turn prompt and returns assistant text.
// JSON response formats map onto Ollama's format field.
func (c *NotesOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}

	switch options.Format {
	case ai.ResponseJSONObject:
		req.Format = json.RawMessage(`"json"`)
	case ai.ResponseJSONSchema:
		format, err := json.Marshal(options.Schema)
		if err != nil {
			return "", err
		}
		req.Format = format
	}

	if n, err := contextSize(options.SystemPrompts, prompt, options.MaxTokens); err == nil && n > defaultContext {
		req.Options["num_ctx"] = n
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", classify(err)
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", classify(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
		Requests:     1,
	})

	return final.Message.Content, nil
}

var (
	encOnce  sync.Once
	tokenEnc *tiktoken.Tiktoken
	encErr   error
)

// encoding loads the token encoder once per process.
func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		tokenEnc, encErr = tiktoken.GetEncoding("o200k_base")
	})
	return tokenEnc, encErr
}

// contextSize estimates the context window a request needs. A token spans
// at least one byte, so requests whose byte length already fits the default
// window are sized without loading the encoder.
func contextSize(system []string, prompt string, maxTokens int) (int, error) {
	reserve := 200
	if maxTokens > 0 {
		reserve += maxTokens
	} else {
		reserve += 1024
	}

	bound := reserve + len(prompt)
	for _, s := range system {
		bound += len(s)
	}
	if bound <= defaultContext {
		return bound, nil
	}

	enc, err := encoding()
	if err != nil {
		return 0, err
	}
	n := reserve + len(enc.Encode(prompt, nil, nil))
	for _, s := range system {
		n += len(enc.Encode(s, nil, nil))
	}
	return n, nil
}
