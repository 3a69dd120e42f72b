// Package server wires handlers, middleware, and routes together and runs
// the HTTP server. It is the composition root: every dependency chain is
// assembled here, so the rest of the codebase only declares what it needs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/config"
	"github.com/amansour/praxis42/internal/handler"
	"github.com/amansour/praxis42/internal/intra"
	"github.com/amansour/praxis42/internal/middleware"
	sqliteRepo "github.com/amansour/praxis42/internal/repository/sqlite"
	"github.com/amansour/praxis42/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown, chiefly the database connection.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph.
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services. Nothing below this package knows how
// its dependencies are constructed.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// ROUTE MAP:
//
//	GET    /auth/42/login                 → redirect to 42 authorization
//	GET    /auth/42/callback              → complete login, issue session
//	POST   /auth/logout                   → clear session cookie
//	GET    /api/auth/session              → authentication probe (optional auth)
//	GET    /api/me                        → current account (auth)
//	GET    /api/projects                  → list projects
//	GET    /api/projects/{slug}           → one project
//	PATCH  /api/projects/{slug}           → curate (auth, admin)
//	GET    /api/projects/{slug}/posts     → README posts, score-sorted
//	POST   /api/projects/{slug}/posts     → publish README (auth)
//	GET    /api/projects/{slug}/comments  → threaded comment tree
//	POST   /api/projects/{slug}/comments  → comment or reply (auth)
//	PATCH  /api/projects/{slug}/posts/{postId}  → edit own post (auth)
//	DELETE /api/projects/{slug}/posts/{postId}  → delete own post (auth)
//	GET    /api/posts/{id}                → one post
//	POST   /api/votes                     → apply vote (auth)
//	GET    /api/votes                     → own votes (optional auth)
//	GET    /api/intra/projects            → 42 API project proxy (auth)
//	GET    /api/intra/campuses            → 42 API campus proxy (auth)
//	GET    /api/intra/me                  → 42 API profile proxy (auth)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// --- auth plumbing ---
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	accounts := s.db.Accounts()

	// The provider stays a nil interface when OAuth is unconfigured; the
	// auth handler then answers with config_error instead of panicking.
	var provider handler.OAuthProvider
	if s.config.OAuthConfigured() {
		provider = auth.NewFortyTwoProvider(
			s.config.FortyTwoClientID,
			s.config.FortyTwoClientSecret,
			s.config.FortyTwoCallbackURL,
		)
	} else {
		s.logger.Warn("42 OAuth credentials not configured; login is disabled")
	}

	// --- 42 API client ---
	var responseCache intra.ResponseCache = intra.NoopCache{}
	if s.config.RedisURL != "" {
		redisCache, err := intra.NewRedisCache(s.config.RedisURL, "intra", s.logger)
		if err != nil {
			s.logger.Warn("redis unavailable, 42 API responses will not be cached",
				slog.String("error", err.Error()))
		} else {
			responseCache = redisCache
		}
	}
	intraClient := intra.New(
		s.config.FortyTwoClientID,
		s.config.FortyTwoClientSecret,
		intra.NewTokenCache(),
		responseCache,
		s.logger,
	)
	syncer := intra.NewSyncer(s.db.Projects(), s.logger)

	// --- services ---
	authSvc := service.NewAuthService(accounts, s.db.Identities(), tokens, s.logger)
	projectSvc := service.NewProjectService(s.db.Projects())
	postSvc := service.NewPostService(s.db.Posts(), s.db.Projects(), s.db.Votes())
	commentSvc := service.NewCommentService(s.db.Comments(), s.db.Projects(), s.db.Votes())
	voteSvc := service.NewVoteService(s.db.Votes(), s.db.Posts(), s.db.Comments())

	// --- handlers ---
	authHandler := handler.NewAuthHandler(provider, authSvc, s.config.AppURL, s.logger)
	projectHandler := handler.NewProjectHandler(projectSvc, s.logger)
	postHandler := handler.NewPostHandler(postSvc, s.logger)
	commentHandler := handler.NewCommentHandler(commentSvc, s.logger)
	voteHandler := handler.NewVoteHandler(voteSvc, s.logger)
	intraHandler := handler.NewIntraHandler(intraClient, syncer, s.logger)

	requireAuth := auth.RequireAuth(tokens, accounts)
	optionalAuth := auth.OptionalAuth(tokens, accounts)

	// --- OAuth flow (browser-facing, no JSON errors) ---
	s.router.Get("/auth/42/login", authHandler.HandleLogin)
	s.router.Get("/auth/42/callback", authHandler.HandleCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// --- JSON API ---
	s.router.Route("/api", func(r chi.Router) {
		// public reads
		r.Get("/projects", projectHandler.HandleList)
		r.Get("/projects/{slug}", projectHandler.HandleGet)
		r.Get("/projects/{slug}/posts", postHandler.HandleList)
		r.Get("/projects/{slug}/comments", commentHandler.HandleList)
		r.Get("/posts/{id}", postHandler.HandleGet)

		// anonymous-tolerant
		r.With(optionalAuth).Get("/auth/session", authHandler.HandleSession)
		r.With(optionalAuth).Get("/votes", voteHandler.HandleUserVotes)

		// authenticated
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Patch("/projects/{slug}", projectHandler.HandleCurate)
			r.Post("/projects/{slug}/posts", postHandler.HandleCreate)
			r.Post("/projects/{slug}/comments", commentHandler.HandleCreate)
			r.Patch("/projects/{slug}/posts/{postId}", postHandler.HandleUpdate)
			r.Delete("/projects/{slug}/posts/{postId}", postHandler.HandleDelete)
			r.Post("/votes", voteHandler.HandleApply)
			r.Get("/intra/projects", intraHandler.HandleProjects)
			r.Get("/intra/campuses", intraHandler.HandleCampuses)
			r.Get("/intra/me", intraHandler.HandleMe)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests (30s), close the
// database so the WAL is flushed and the file lock released.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
