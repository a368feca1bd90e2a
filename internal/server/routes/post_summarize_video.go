package routes

import (
	"io"
	"net/http"
	"path"

	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/notes"

	"github.com/labstack/echo/v4"
)

// UploadKey returns the upload store key for a media file.
func UploadKey(id, fileName string) string {
	ext := path.Ext(fileName)
	return "media/" + id + "_" + util.SafeName(fileName, "upload") + ext
}

// SummarizeVideoHandler transcribes an uploaded video and returns its
// report together with the stored mindmap key.
func SummarizeVideoHandler(c echo.Context) error {
	type summarizeResponse struct {
		Status      string                `json:"status"`
		Summary     *notes.DocumentReport `json:"summary"`
		MindmapFile string                `json:"mindmap_file"`
	}

	file, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Missing video file"})
	}
	src, err := file.Open()
	if err != nil {
		return badRequest(c)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c)
	}

	app := appOf(c)
	ctx := c.Request().Context()
	logger.Info("[Server] Processing video", "file", file.Filename, "bytes", len(data))

	id := runner.NewDocumentID()
	key := UploadKey(id, file.Filename)
	if err := app.Uploads.Put(ctx, key, data, file.Header.Get("Content-Type")); err != nil {
		return errorJSON(c, err)
	}
	defer func() {
		if err := app.Uploads.Delete(ctx, key); err != nil {
			logger.Warn("[Server] Could not remove upload", "key", key, "err", err)
		}
	}()

	opts := app.Options
	opts.Mindmap = true
	doc, err := app.Runner.Run(ctx, runner.Job{
		DocumentID: id,
		Source:     loader.Source{Kind: loader.SourceMedia, Path: key, Name: file.Filename},
		Options:    opts,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, summarizeResponse{
		Status:      "success",
		Summary:     doc.Report,
		MindmapFile: doc.MindmapKey,
	})
}
