package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"

	"github.com/openai/openai-go/v3"
)

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Errors are classified for retry handling: a missing key or a 401/403 is
// fatal, 429 is rate limited, everything else is transient.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, "Summarize this text...",
//		ai.WithTemperature(0.3), ai.WithJSONResponse())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp)
func (c *NotesOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	if c.ChatClient == nil {
		return "", ai.Fatal(fmt.Errorf("chat %w", errNotConfigured))
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(options.MaxTokens))
	}

	schema := options.Format == ai.ResponseJSONSchema && !c.schemaUnsupported.Load()
	switch {
	case schema:
		body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        options.SchemaName,
					Description: openai.String(options.SchemaDesc),
					Schema:      options.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	case options.Format != ai.ResponseText:
		body.ResponseFormat = jsonObjectFormat()
	}

	response, err := c.complete(ctx, body)
	var apiErr *openai.Error
	if schema && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		// backend without json_schema support
		logger.Debug("[OpenAI] json_schema rejected, using json_object", "model", options.Model)
		c.schemaUnsupported.Store(true)
		body.ResponseFormat = jsonObjectFormat()
		response, err = c.complete(ctx, body)
	}
	if err != nil {
		return "", classify(err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}

func jsonObjectFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
	}
}

// complete sends one chat request and records its usage.
func (c *NotesOpenAIClient) complete(ctx context.Context, body openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	rCtx, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(rCtx, body)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
		Requests:     1,
	})
	return response, nil
}
