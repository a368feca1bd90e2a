package middleware

import (
	"context"

	"github.com/smartsum/backend/internal/queue"
	"github.com/smartsum/backend/internal/runner"
	"github.com/smartsum/backend/internal/storage"
	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

// AppUser is the authenticated caller.
type AppUser struct {
	Subject string
	Role    string
}

// Processor is the part of notes.Processor the handlers need.
type Processor interface {
	Process(ctx context.Context, rawText string, opts notes.Options) (*notes.Result, error)
	Query(ctx context.Context, text, keyword string) notes.KeywordQueryResult
}

// App holds everything a handler may touch. Queue and Embedder may be nil;
// the routes depending on them then answer with an error.
type App struct {
	Runner    *runner.Runner
	Processor Processor
	Documents store.DocumentStore
	Uploads   storage.ArtifactStore
	Embedder  ai.Embedder

	Queue     queue.Publisher
	QueueName string

	// Options is the base for every run; requests may override parts.
	Options notes.Options

	Key          keyfunc.Keyfunc
	MasterAPIKey string
}

// AuthEnabled reports whether /api requires credentials.
func (a *App) AuthEnabled() bool {
	return a.Key != nil || a.MasterAPIKey != ""
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware wraps every request context in an AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
