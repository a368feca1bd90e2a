package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartsum/backend/internal/app"
	"github.com/smartsum/backend/internal/config"
	"github.com/smartsum/backend/internal/queue"
	mid "github.com/smartsum/backend/internal/server/middleware"
	"github.com/smartsum/backend/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance with middleware and routes for a.
func New(a *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(a))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2G"))

	RegisterRoutes(e)
	return e
}

// Init assembles the stack from cfg and serves until SIGINT or SIGTERM.
func Init(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "err", err)
	}
	defer stack.Close()

	a := &mid.App{
		Runner:       stack.Runner,
		Processor:    stack.Processor,
		Documents:    stack.Documents,
		Uploads:      stack.Uploads,
		Embedder:     stack.Embedder,
		QueueName:    cfg.Queue.Name,
		Options:      cfg.Pipeline.Options(),
		MasterAPIKey: cfg.Auth.MasterKey,
	}

	if cfg.Auth.URL != "" {
		k, err := keyfunc.NewDefault([]string{cfg.Auth.URL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		a.Key = k
	}

	conn, err := queue.Connect(cfg.Queue)
	if err != nil {
		logger.Warn("Queue unavailable, async jobs disabled", "err", err)
	} else {
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(ch, cfg.Queue.Name); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		a.Queue = ch
	}

	e := New(a)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
