package routes

import (
	"fmt"
	"net/http"

	"github.com/smartsum/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// SearchHandler embeds the query and returns the closest stored segments.
func SearchHandler(c echo.Context) error {
	type searchBody struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
	}
	type searchResponse struct {
		Hits []store.SegmentHit `json:"hits"`
	}

	data := new(searchBody)
	if err := c.Bind(data); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c)
	}

	app := appOf(c)
	if app.Embedder == nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Semantic search needs an embedding model"})
	}

	ctx := c.Request().Context()
	vectors, err := app.Embedder.GenerateEmbeddings(ctx, []string{data.Query})
	if err != nil {
		return errorJSON(c, err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return errorJSON(c, fmt.Errorf("embedding returned no vector"))
	}

	hits, err := app.Documents.SearchSegments(ctx, vectors[0], data.Limit)
	if err != nil {
		return errorJSON(c, err)
	}
	if hits == nil {
		hits = []store.SegmentHit{}
	}
	return c.JSON(http.StatusOK, searchResponse{Hits: hits})
}
