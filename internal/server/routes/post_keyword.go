package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// KeywordHandler answers a keyword query over inline text or the segments
// of a stored document. Generation failures are reported inside the result
// with status 200.
func KeywordHandler(c echo.Context) error {
	type keywordBody struct {
		Text       string `json:"text"`
		DocumentID string `json:"document_id"`
		Keyword    string `json:"keyword"`
	}

	data := new(keywordBody)
	if err := c.Bind(data); err != nil {
		return badRequest(c)
	}

	app := appOf(c)
	ctx := c.Request().Context()

	text := data.Text
	if text == "" && data.DocumentID != "" {
		doc, err := app.Documents.GetDocument(ctx, data.DocumentID)
		if err != nil {
			return errorJSON(c, err)
		}
		text = documentText(doc.Report)
	}

	return c.JSON(http.StatusOK, app.Processor.Query(ctx, text, data.Keyword))
}
