// Package runner executes one processing job end to end: load, process,
// persist. The HTTP server runs jobs inline, the worker runs them from the
// queue.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Job is one unit of work. DocumentID is empty for synchronous runs; the
// runner then creates the document itself.
type Job struct {
	DocumentID string        `json:"document_id,omitempty"`
	Source     loader.Source `json:"source"`
	Options    notes.Options `json:"options"`
}

// Processor is the part of notes.Processor the runner needs.
type Processor interface {
	Process(ctx context.Context, rawText string, opts notes.Options) (*notes.Result, error)
}

// Runner wires a processor to its loaders and stores.
type Runner struct {
	processor Processor
	loader    loader.TextLoader
	documents store.DocumentStore
	artifacts storage.ArtifactStore
}

// Params holds the collaborators of a Runner. Artifacts may be nil.
type Params struct {
	Processor Processor
	Loader    loader.TextLoader
	Documents store.DocumentStore
	Artifacts storage.ArtifactStore
}

func New(params Params) *Runner {
	return &Runner{
		processor: params.Processor,
		loader:    params.Loader,
		documents: params.Documents,
		artifacts: params.Artifacts,
	}
}

// NewDocumentID returns a fresh document id.
func NewDocumentID() string {
	return gonanoid.Must()
}

// Enqueue records a queued document for job and returns it with its id set
// on the job.
func (r *Runner) Enqueue(ctx context.Context, job *Job) (store.Document, error) {
	if job.DocumentID == "" {
		job.DocumentID = NewDocumentID()
	}
	doc := store.Document{
		ID:         job.DocumentID,
		Name:       loader.DisplayName(job.Source),
		SourceKind: string(job.Source.Kind),
		Status:     store.StatusQueued,
	}
	if err := r.documents.CreateDocument(ctx, doc); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

// Run loads, processes and persists job. On failure the document is
// marked failed and the error returned together with it.
func (r *Runner) Run(ctx context.Context, job Job) (store.Document, error) {
	start := time.Now()
	doc, err := r.begin(ctx, job)
	if err != nil {
		return store.Document{}, err
	}
	logger.Info("[Runner] Processing document", "id", doc.ID, "name", doc.Name, "kind", doc.SourceKind)

	doc, err = r.run(ctx, job, doc)
	if err != nil {
		logger.Error("[Runner] Processing failed", "id", doc.ID, "err", err)
		doc.Status = store.StatusFailed
		doc.Error = err.Error()
		// the caller's context may be the reason for the failure
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if uerr := r.documents.UpdateDocument(saveCtx, doc); uerr != nil {
			logger.Error("[Runner] Could not mark document failed", "id", doc.ID, "err", uerr)
		}
		return doc, err
	}

	logger.Info("[Runner] Document completed",
		"id", doc.ID,
		"segments", len(doc.Report.Segments),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return doc, nil
}

func (r *Runner) begin(ctx context.Context, job Job) (store.Document, error) {
	if job.DocumentID == "" {
		doc := store.Document{
			ID:         NewDocumentID(),
			Name:       loader.DisplayName(job.Source),
			SourceKind: string(job.Source.Kind),
			Status:     store.StatusProcessing,
		}
		if err := r.documents.CreateDocument(ctx, doc); err != nil {
			return store.Document{}, err
		}
		return doc, nil
	}

	doc, err := r.documents.GetDocument(ctx, job.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		doc = store.Document{
			ID:         job.DocumentID,
			Name:       loader.DisplayName(job.Source),
			SourceKind: string(job.Source.Kind),
			Status:     store.StatusProcessing,
		}
		return doc, r.documents.CreateDocument(ctx, doc)
	}
	if err != nil {
		return store.Document{}, err
	}
	doc.Status = store.StatusProcessing
	doc.Error = ""
	return doc, r.documents.UpdateDocument(ctx, doc)
}

func (r *Runner) run(ctx context.Context, job Job, doc store.Document) (store.Document, error) {
	text, err := r.loader.LoadText(ctx, job.Source)
	if err != nil {
		return doc, fmt.Errorf("load source: %w", err)
	}

	res, err := r.processor.Process(ctx, text, job.Options)
	if err != nil {
		return doc, err
	}
	if res.Mindmap.Skipped {
		logger.Debug("[Runner] No mindmap", "id", doc.ID, "reason", res.Mindmap.Reason)
	}

	report := res.Report
	doc.Report = &report
	doc.Mindmap = res.Mindmap.Value

	if r.artifacts != nil {
		name := util.SafeName(doc.Name, "document") + "_" + doc.ID
		keys, err := storage.SaveArtifacts(ctx, r.artifacts, name, report, res.Mindmap.Value)
		if err != nil {
			return doc, err
		}
		doc.ReportKey = keys.Report
		doc.MindmapKey = keys.Mindmap
	}

	if embeddings := store.EmbeddingsFromResult(res); len(embeddings) > 0 {
		if err := r.documents.SaveSegmentEmbeddings(ctx, doc.ID, embeddings); err != nil {
			logger.Warn("[Runner] Could not store segment embeddings", "id", doc.ID, "err", err)
		}
	}

	doc.Status = store.StatusCompleted
	doc.Error = ""
	if err := r.documents.UpdateDocument(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// StoreBytes reads media sources from an artifact store, using the
// source path as key.
type StoreBytes struct {
	Store storage.ArtifactStore
}

func (b StoreBytes) Load(ctx context.Context, src loader.Source) ([]byte, error) {
	return b.Store.Get(ctx, src.Path)
}
