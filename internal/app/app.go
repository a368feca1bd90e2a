// Package app assembles the processing stack from configuration. It is
// shared by the server, the worker and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/smartsum/backend/internal/config"
	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/loader"
	"github.com/smartsum/backend/pkg/loader/audio"
	lio "github.com/smartsum/backend/pkg/loader/io"
	"github.com/smartsum/backend/pkg/loader/pdf"
	"github.com/smartsum/backend/pkg/loader/web"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"
	"github.com/smartsum/backend/pkg/store/pgx"
	"github.com/smartsum/backend/pkg/store/sqlite"
)

// Core is the stateless part of the stack: the AI client, the processor
// and loaders for inline text, local files and URLs.
type Core struct {
	Config    *config.Config
	AI        ai.Client
	Embedder  ai.Embedder
	Processor *notes.Processor
	Loader    *loader.Mux
}

// NewCore builds the AI client and processor. File and media sources are
// read from the local filesystem; PDFs go through pdftotext.
func NewCore(cfg *config.Config) (*Core, error) {
	client, err := config.NewAIClient(cfg.AI)
	if err != nil {
		return nil, err
	}
	embedder := cfg.AI.Embedder(client)

	processor := notes.NewProcessor(notes.ProcessorParams{
		Generator:      client,
		Embedder:       embedder,
		Model:          cfg.AI.ChatModel,
		SecondaryModel: cfg.AI.SecondaryModel,
	})

	files := lio.NewFileLoader()
	mux := loader.NewMux().
		Handle(loader.SourceFile, loader.NewExtMux(files).Handle(".pdf", pdf.NewPDFLoader(files))).
		Handle(loader.SourceURL, web.NewWebLoader(nil)).
		Handle(loader.SourceMedia, newAudioLoader(cfg, client, files))

	return &Core{
		Config:    cfg,
		AI:        client,
		Embedder:  embedder,
		Processor: processor,
		Loader:    mux,
	}, nil
}

func newAudioLoader(cfg *config.Config, t ai.Transcriber, b loader.ByteLoader) *audio.AudioLoader {
	return audio.NewAudioLoader(audio.NewAudioLoaderParams{
		Transcriber: t,
		Loader:      b,
		Converter:   audio.FFmpeg{Path: cfg.FFmpegPath},
	})
}

// App is the full stack with persistence.
type App struct {
	*Core

	Documents store.DocumentStore
	Outputs   storage.ArtifactStore
	Uploads   storage.ArtifactStore
	Runner    *runner.Runner
}

// New builds the full stack. Media sources are read from the upload store.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	core, err := NewCore(cfg)
	if err != nil {
		return nil, err
	}

	outputs, uploads, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	core.Loader.Handle(loader.SourceMedia, newAudioLoader(cfg, core.AI, runner.StoreBytes{Store: uploads}))

	docs, err := OpenDocuments(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	return &App{
		Core:      core,
		Documents: docs,
		Outputs:   outputs,
		Uploads:   uploads,
		Runner: runner.New(runner.Params{
			Processor: core.Processor,
			Loader:    core.Loader,
			Documents: docs,
			Artifacts: outputs,
		}),
	}, nil
}

// Close releases the document store.
func (a *App) Close() error {
	return a.Documents.Close()
}

// OpenDocuments opens the document store selected by DATABASE_BACKEND.
func OpenDocuments(ctx context.Context, cfg config.DatabaseConfig) (store.DocumentStore, error) {
	switch cfg.Backend {
	case "postgres", "postgresql":
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return pgx.Open(ctx, cfg.URL)
	case "sqlite", "":
		return sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DATABASE_BACKEND %q", cfg.Backend)
	}
}
