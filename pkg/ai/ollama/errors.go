package ollama

import (
	"context"
	"errors"

	"github.com/smartsum/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

func classify(err error) error {
	if err == nil {
		return nil
	}

	var authErr api.AuthorizationError
	if errors.As(err, &authErr) {
		return ai.NewCallError(authErr.StatusCode, err)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return ai.NewCallError(statusErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ai.CallError{Kind: ai.KindTransient, Err: err}
	}
	return err
}
