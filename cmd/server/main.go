// @title           Todo API
// @version         1.0
// @description     Todos and categories backed by a SQL store with a searchable mirror.
// @BasePath        /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-todo-backend/internal/config"
	httpapi "github.com/tbourn/go-todo-backend/internal/http"
	"github.com/tbourn/go-todo-backend/internal/observability"
	"github.com/tbourn/go-todo-backend/internal/repo"
	"github.com/tbourn/go-todo-backend/internal/search"
	"github.com/tbourn/go-todo-backend/internal/services"
	"github.com/tbourn/go-todo-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DB.Driver,
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.DSN,
		Tracing: cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open primary store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	idx := httpapi.Indexes{
		Todos:      search.NewTodoMirror(),
		Categories: search.NewCategoryMirror(),
	}
	if cfg.ReindexOnStart {
		reindex(ctx, db, idx)
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, idx, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("app", cfg.AppName).Logger()
	lvl := sysutil.SetLogLevel(cfg.LogLevel)
	// services fall back to this logger outside a request
	zerolog.DefaultContextLogger = &log.Logger
	log.Debug().Str("level", lvl.String()).Msg("logging configured")
}

// reindex rebuilds both mirrors from the primary store. A failure leaves the
// mirror partially filled and is logged; the server still starts.
func reindex(ctx context.Context, db *gorm.DB, idx httpapi.Indexes) {
	todos := services.NewTodoService(repo.NewTodoStore(db), idx.Todos)
	if n, err := todos.Reindex(ctx); err != nil {
		log.Error().Err(err).Int("indexed", n).Msg("reindex todos")
	} else {
		log.Info().Int("indexed", n).Msg("reindexed todos")
	}

	categories := services.NewCategoryService(repo.NewCategoryStore(db), idx.Categories)
	if n, err := categories.Reindex(ctx); err != nil {
		log.Error().Err(err).Int("indexed", n).Msg("reindex categories")
	} else {
		log.Info().Int("indexed", n).Msg("reindexed categories")
	}
}
