// Package routes holds the HTTP handlers. Every handler reads its
// collaborators from middleware.AppContext.
package routes

import (
	"errors"
	"net/http"

	"github.com/smartsum/backend/internal/server/middleware"
	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
}

// statusFor maps a processing error to an HTTP status.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, notes.ErrEmptyInput):
		return http.StatusBadRequest
	case ai.IsFatal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
	}
	if code == http.StatusNotFound {
		msg = "Not found"
	}
	return c.JSON(code, messageResponse{Message: msg})
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
}

func appOf(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// optionsBody overrides the configured run options per request.
type optionsBody struct {
	Mindmap             *bool    `json:"mindmap"`
	MindmapConcept      string   `json:"mindmap_concept"`
	OverallSummary      *bool    `json:"overall_summary"`
	SimilarityThreshold *float64 `json:"similarity_threshold" validate:"omitempty,gte=0,lte=1"`
	MaxWords            *int     `json:"max_words" validate:"omitempty,gt=0"`
	MinWords            *int     `json:"min_words" validate:"omitempty,gte=0"`
}

func (o *optionsBody) apply(base notes.Options) notes.Options {
	if o == nil {
		return base
	}
	if o.Mindmap != nil {
		base.Mindmap = *o.Mindmap
	}
	if o.MindmapConcept != "" {
		base.MindmapConcept = o.MindmapConcept
	}
	if o.OverallSummary != nil {
		base.OverallSummary = *o.OverallSummary
	}
	if o.SimilarityThreshold != nil {
		base.Segmentation.SimilarityThreshold = *o.SimilarityThreshold
	}
	if o.MaxWords != nil {
		base.Segmentation.MaxWords = *o.MaxWords
	}
	if o.MinWords != nil {
		base.Segmentation.MinWords = *o.MinWords
	}
	return base
}
