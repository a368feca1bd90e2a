package openai

import (
	"context"
	"errors"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

var errNotConfigured = errors.New("client not configured: missing API key")

// classify tags err with the retry class derived from the API status code.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ai.NewCallError(apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ai.CallError{Kind: ai.KindTransient, Err: err}
	}
	return err
}
