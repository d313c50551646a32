// Package server wires the application together and runs the HTTP server.
//
// This is the composition root: every long-lived component (database, model
// clients, extractor, storage, services, handlers) is built once in New and
// injected downward. Nothing below this package constructs its own
// dependencies.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → sqlite.DB, auth.TokenService, auth.PasswordService
//	  → inference.Client / inference.Embedder → nlp components
//	  → document.Extractor, storage.Store
//	  → AccountService, AnalysisService, UploadService
//	  → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/doc-insight/internal/auth"
	"github.com/sakif/doc-insight/internal/config"
	"github.com/sakif/doc-insight/internal/document"
	"github.com/sakif/doc-insight/internal/handler"
	"github.com/sakif/doc-insight/internal/inference"
	"github.com/sakif/doc-insight/internal/middleware"
	"github.com/sakif/doc-insight/internal/nlp/chunk"
	"github.com/sakif/doc-insight/internal/nlp/keywords"
	"github.com/sakif/doc-insight/internal/nlp/sentiment"
	"github.com/sakif/doc-insight/internal/nlp/summarize"
	"github.com/sakif/doc-insight/internal/nlp/topics"
	sqliteRepo "github.com/sakif/doc-insight/internal/repository/sqlite"
	"github.com/sakif/doc-insight/internal/service"
	"github.com/sakif/doc-insight/internal/storage"
	"github.com/sakif/doc-insight/internal/storage/local"
	s3store "github.com/sakif/doc-insight/internal/storage/s3"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT or
// SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the resources that must be closed on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService

	accounts *service.AccountService
	analysis *service.AnalysisService
	uploads  *service.UploadService
}

// New builds every component from cfg and registers the routes.
// ctx is only used while connecting to external services at startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.buildServices(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// buildServices creates the model clients, extractor, storage and the three
// services.
func (s *Server) buildServices(ctx context.Context) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Session.SecretKey, cfg.Session.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	s.tokens = tokens

	s.accounts = service.NewAccountService(s.db, s.db, tokens, auth.NewPasswordService(), s.logger)

	// === Model clients ===
	// One HTTP client per process; the models behind it are loaded once by
	// the sidecar, not per request.
	models := inference.NewClient(cfg.Inference.URL, cfg.Inference.Token, cfg.Inference.Timeout)

	var chunker *chunk.Chunker
	if cfg.NLP.SummaryChunking {
		chunker = chunk.New(models.Tokenizer(), cfg.NLP.ChunkMaxTokens)
	}
	summarizer := summarize.New(models.Summarizer(cfg.Inference.SummarizationModel), chunker)

	embedder := inference.NewEmbedder(cfg.Inference.EmbeddingsURL, cfg.Inference.EmbeddingsAPIKey, cfg.Inference.EmbeddingsModel)

	s.analysis = service.NewAnalysisService(
		summarizer,
		keywords.New(embedder),
		topics.New(cfg.NLP.TopicSeed),
		sentiment.New(models.Classifier(cfg.Inference.SentimentModel)),
		s.db,
		s.logger,
	)

	// === Documents ===
	extractor, err := document.NewExtractor(cfg.NLP.PDFExtractor)
	if err != nil {
		return fmt.Errorf("creating extractor: %w", err)
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating %s storage: %w", cfg.Storage.Backend, err)
	}

	s.uploads = service.NewUploadService(store, extractor, summarizer, service.UploadOptions{
		MaxBytes: cfg.Server.MaxUploadBytes,
		Chunking: cfg.NLP.SummaryChunking,
	}, s.logger)

	s.logger.Info("services ready",
		slog.String("inference", cfg.Inference.URL),
		slog.String("embeddings", cfg.Inference.EmbeddingsURL),
		slog.String("extractor", cfg.NLP.PDFExtractor),
		slog.String("storage", cfg.Storage.Backend),
		slog.Bool("chunking", cfg.NLP.SummaryChunking),
	)
	return nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return local.New(cfg.UploadDir)
	}
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET       /          → index page (history when logged in)
//	GET/POST  /signup    → signup form
//	GET/POST  /login     → login form
//	GET       /logout    → end session              [auth]
//	POST      /upload    → PDF in, summary PDF out  [auth]
//	POST      /analyze   → text analysis JSON
//	GET       /history   → caller's history JSON    [auth]
//	GET       /healthz   → liveness
//	GET       /static/*  → CSS and JS
//
// MIDDLEWARE ORDER MATTERS:
// RequestID must run before Logger so the ID is logged; Recoverer sits
// inside Logger so a panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if origins := s.config.CORS.AllowedOrigins; len(origins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	s.router.Use(middleware.Flash)

	fileServer := http.FileServer(http.Dir(s.config.Server.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	pages, err := handler.NewPages(s.config.Server.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	accountHandler := handler.NewAccountHandler(s.accounts, pages, s.tokens.TTL(), s.logger)
	analyzeHandler := handler.NewAnalyzeHandler(s.analysis, s.accounts, s.logger)
	uploadHandler := handler.NewUploadHandler(s.uploads, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// Public routes; the session is attached when present.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.tokens))

		r.Get("/", accountHandler.HandleIndex)
		r.Get("/signup", accountHandler.HandleSignupPage)
		r.Post("/signup", accountHandler.HandleSignup)
		r.Get("/login", accountHandler.HandleLoginPage)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/analyze", analyzeHandler.HandleAnalyze)
	})

	// Protected routes.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/logout", accountHandler.HandleLogout)
		r.Post("/upload", uploadHandler.HandleUpload)
		r.Get("/history", accountHandler.HandleHistory)
	})

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Server.Port),
			slog.String("url", "http://localhost:"+s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
