package routes

import (
	"net/http"

	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/pkg/loader"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// ProcessHandler runs the pipeline on inline text and returns the stored
// document.
func ProcessHandler(c echo.Context) error {
	type processBody struct {
		Text    string       `json:"text" validate:"required"`
		Name    string       `json:"name"`
		Options *optionsBody `json:"options"`
	}

	data := new(processBody)
	if err := c.Bind(data); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c)
	}

	app := appOf(c)
	doc, err := app.Runner.Run(c.Request().Context(), runner.Job{
		Source:  loader.Source{Kind: loader.SourceText, Text: data.Text, Name: data.Name},
		Options: data.Options.apply(app.Options),
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}
