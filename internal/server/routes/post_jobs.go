package routes

import (
	"io"
	"net/http"

	"github.com/smartsum/backend/internal/queue"
	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateJobHandler queues a document for the worker. It accepts JSON with
// text or url, or a multipart form with a "media" file.
func CreateJobHandler(c echo.Context) error {
	type jobBody struct {
		Text    string       `json:"text" form:"text"`
		URL     string       `json:"url" form:"url" validate:"omitempty,url"`
		Name    string       `json:"name" form:"name"`
		Options *optionsBody `json:"options"`
	}
	type jobResponse struct {
		Message    string `json:"message"`
		DocumentID string `json:"document_id"`
		Status     string `json:"status"`
	}

	app := appOf(c)
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Queue not configured"})
	}

	data := new(jobBody)
	if err := c.Bind(data); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c)
	}

	ctx := c.Request().Context()
	job := runner.Job{
		DocumentID: runner.NewDocumentID(),
		Options:    data.Options.apply(app.Options),
	}

	switch {
	case data.Text != "":
		job.Source = loader.Source{Kind: loader.SourceText, Text: data.Text, Name: data.Name}
	case data.URL != "":
		job.Source = loader.Source{Kind: loader.SourceURL, URL: data.URL, Name: data.Name}
	default:
		file, err := c.FormFile("media")
		if err != nil {
			return badRequest(c)
		}
		src, err := file.Open()
		if err != nil {
			return badRequest(c)
		}
		defer src.Close()
		content, err := io.ReadAll(src)
		if err != nil {
			return badRequest(c)
		}
		key := UploadKey(job.DocumentID, file.Filename)
		if err := app.Uploads.Put(ctx, key, content, file.Header.Get("Content-Type")); err != nil {
			return errorJSON(c, err)
		}
		name := data.Name
		if name == "" {
			name = file.Filename
		}
		job.Source = loader.Source{Kind: loader.SourceMedia, Path: key, Name: name}
	}

	doc, err := app.Runner.Enqueue(ctx, &job)
	if err != nil {
		return errorJSON(c, err)
	}

	body, err := queue.EncodeJob(job, "queued via api")
	if err != nil {
		return errorJSON(c, err)
	}
	if err := queue.PublishFIFO(app.Queue, app.QueueName, body); err != nil {
		logger.Error("[Server] Failed to publish job", "id", doc.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Failed to queue job"})
	}

	return c.JSON(http.StatusAccepted, jobResponse{
		Message:    "Job queued",
		DocumentID: doc.ID,
		Status:     string(doc.Status),
	})
}
