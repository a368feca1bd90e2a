// Package store defines persistence for processed documents and their
// segment embeddings.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/smartsum/backend/pkg/notes"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Document is one processing run and, once completed, its report.
type Document struct {
	ID         string                `json:"id" yaml:"id"`
	Name       string                `json:"name" yaml:"name"`
	SourceKind string                `json:"source_kind" yaml:"source_kind"`
	Status     Status                `json:"status" yaml:"status"`
	Error      string                `json:"error,omitempty" yaml:"error,omitempty"`
	Report     *notes.DocumentReport `json:"report,omitempty" yaml:"report,omitempty"`
	Mindmap    string                `json:"mindmap,omitempty" yaml:"mindmap,omitempty"`
	ReportKey  string                `json:"report_file,omitempty" yaml:"report_file,omitempty"`
	MindmapKey string                `json:"mindmap_file,omitempty" yaml:"mindmap_file,omitempty"`
	CreatedAt  time.Time             `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at" yaml:"updated_at"`
}

// SegmentEmbedding is the stored vector of one extracted segment.
type SegmentEmbedding struct {
	SegmentID int
	Topic     string
	Summary   string
	Vector    []float32
}

// SegmentHit is a search result. Score is the cosine similarity.
type SegmentHit struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	SegmentID    int     `json:"segment_id"`
	Topic        string  `json:"topic"`
	Summary      string  `json:"summary"`
	Score        float64 `json:"score"`
}

// DocumentStore persists documents and segment embeddings.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc Document) error
	UpdateDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, error)
	// ListDocuments returns documents newest first, without reports.
	ListDocuments(ctx context.Context, limit int) ([]Document, error)

	// SaveSegmentEmbeddings replaces the embeddings of a document.
	SaveSegmentEmbeddings(ctx context.Context, documentID string, segments []SegmentEmbedding) error
	// SearchSegments returns the segments closest to vector, best first.
	SearchSegments(ctx context.Context, vector []float32, limit int) ([]SegmentHit, error)

	Close() error
}
