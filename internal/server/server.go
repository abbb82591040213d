package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"contentops/internal/article"
	"contentops/internal/config"
	"contentops/internal/contact"
	"contentops/internal/core"
	"contentops/internal/imagesearch"
	"contentops/internal/leads"
	"contentops/internal/logger"
	"contentops/internal/observability"
	"contentops/internal/persistence"
	"contentops/internal/ratelimit"
	"contentops/internal/router"
	"contentops/internal/webhook"
)

// requestTimeout bounds every handler; article generation is the slowest path.
const requestTimeout = 150 * time.Second

// Chatter answers chat conversations.
type Chatter interface {
	Handle(ctx context.Context, messages []core.ChatMessage) (router.Reply, error)
}

// ArticleWorkflow generates and optionally publishes articles.
type ArticleWorkflow interface {
	Generate(ctx context.Context, req article.Request) (*article.Result, error)
	Publish(ctx context.Context, req article.Request) (*article.Result, error)
}

// CoverFinder picks a cover image for a title.
type CoverFinder interface {
	Find(ctx context.Context, title string, pool int) (imagesearch.Image, error)
}

// LeadCapturer runs the lead form flows.
type LeadCapturer interface {
	CaptureEbook(ctx context.Context, sub leads.Submission) (leads.Outcome, error)
	CapturePlaybook(ctx context.Context, sub leads.Submission) (leads.Outcome, error)
	Recent(ctx context.Context, limit int) ([]core.Lead, error)
}

// WebhookProber reports lead webhook reachability.
type WebhookProber interface {
	Configured() bool
	Probe(ctx context.Context) webhook.ProbeResult
}

// ContactSubmitter handles the contact form.
type ContactSubmitter interface {
	Submit(ctx context.Context, form contact.Form) (contact.Result, error)
}

// Deps are the services behind the HTTP surface. Limiter and Tracker may be nil.
type Deps struct {
	DB          persistence.Database
	Chat        Chatter
	Articles    ArticleWorkflow
	Topics      router.TopicSearcher
	Covers      CoverFinder
	Leads       LeadCapturer
	Webhook     WebhookProber
	Contact     ContactSubmitter
	Limiter     *ratelimit.Limiter
	Tracker     observability.Tracker
	AdminAPIKey string
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(cfg config.Server, deps Deps) *Server {
	if deps.Tracker == nil {
		deps.Tracker = observability.Disabled()
	}

	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		log:    logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
	s.router.Use(securityHeaders)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/ai", func(r chi.Router) {
			r.Post("/chat", s.handleChat)
			r.Post("/generate-article", s.handleGenerateArticle)
			r.Post("/search-topics", s.handleSearchTopics)
			r.Post("/cover-image", s.handleCoverImage)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdminAPI)
				r.Get("/schedules", s.handleListSchedules)
				r.Post("/schedules", s.handleCreateSchedule)
			})
		})

		r.Post("/ebook-lead", s.handleEbookLead)
		r.Get("/ebook-lead", s.handleWebhookStatus)

		r.Route("/playbook-leads", func(r chi.Router) {
			r.With(s.rateLimit).Post("/", s.handlePlaybookLead)
			r.With(s.requireAdminAPI).Get("/", s.handleListLeads)
		})

		r.Post("/contact", s.handleContact)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
