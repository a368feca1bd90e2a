package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"

	"github.com/labstack/echo/v4"
	"go.yaml.in/yaml/v3"
)

// documentText rebuilds searchable text from a report's segments.
func documentText(report *notes.DocumentReport) string {
	if report == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range report.Segments {
		b.WriteString(seg.Topic)
		b.WriteString(". ")
		b.WriteString(seg.Summary)
		for _, p := range seg.KeyPoints {
			b.WriteString(" ")
			b.WriteString(p)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func GetDocumentsHandler(c echo.Context) error {
	type documentsResponse struct {
		Documents []store.Document `json:"documents"`
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	docs, err := appOf(c).Documents.ListDocuments(c.Request().Context(), store.ClampLimit(limit))
	if err != nil {
		return errorJSON(c, err)
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return c.JSON(http.StatusOK, documentsResponse{Documents: docs})
}

// GetDocumentHandler returns one document. With ?format=yaml it returns
// the report alone as YAML.
func GetDocumentHandler(c echo.Context) error {
	doc, err := appOf(c).Documents.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}

	switch c.QueryParam("format") {
	case "", "json":
		return c.JSON(http.StatusOK, doc)
	case "yaml":
		if doc.Report == nil {
			return c.JSON(http.StatusConflict, messageResponse{Message: "Document has no report yet"})
		}
		out, err := yaml.Marshal(doc.Report)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.Blob(http.StatusOK, "application/yaml", out)
	default:
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Unsupported format"})
	}
}

func GetDocumentMindmapHandler(c echo.Context) error {
	doc, err := appOf(c).Documents.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if doc.Mindmap == "" {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Not found"})
	}
	return c.String(http.StatusOK, doc.Mindmap)
}
