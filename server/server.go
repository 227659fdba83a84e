package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/onlhub/boardscope/pkg/domain"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/cache.go -pkg mocks -skip-ensure -fmt goimports . Cache
//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler
//go:generate moq -out mocks/content.go -pkg mocks -skip-ensure -fmt goimports . ContentFetcher

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	cache     Cache
	scheduler Scheduler
	content   ContentFetcher
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Cache provides read access to aggregated feed snapshots
type Cache interface {
	GetStale(feedKey string) (result domain.AggregationResult, ok, fresh bool)
}

// Scheduler interface for on-demand aggregation operations
type Scheduler interface {
	RunOnce(ctx context.Context, feedKey string) (domain.AggregationResult, error)
	InFlight(feedKey string) bool
	FeedKeys() []string
}

// ContentFetcher retrieves the full body of a single post on demand
type ContentFetcher interface {
	FetchBody(ctx context.Context, src domain.Source, postURL string) (*domain.PostContent, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	GetBaseURL() string
	DomainSources() []domain.Source
}

// New initializes a new server instance
func New(cfg ConfigProvider, cache Cache, scheduler Scheduler, content ContentFetcher, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		cache:     cache,
		scheduler: scheduler,
		content:   content,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("boardscope", "onlhub", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /feed/{feedKey}", s.feedHandler)
	s.router.HandleFunc("POST /feed/{feedKey}/refresh", s.refreshHandler)
	s.router.HandleFunc("GET /post-content", s.postContentHandler)
	s.router.HandleFunc("GET /rss/{feedKey}", s.rssHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
	})
}

// statusHandler returns server status with per-feed snapshot freshness
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	type feedStatus struct {
		Feed        string     `json:"feed"`
		Posts       int        `json:"posts"`
		GeneratedAt *time.Time `json:"generatedAt,omitempty"`
		Stale       bool       `json:"stale"`
		InFlight    bool       `json:"inFlight"`
	}

	feeds := make([]feedStatus, 0, len(s.scheduler.FeedKeys()))
	for _, key := range s.scheduler.FeedKeys() {
		fs := feedStatus{Feed: key, InFlight: s.scheduler.InFlight(key)}
		if res, ok, fresh := s.cache.GetStale(key); ok {
			generatedAt := res.GeneratedAt
			fs.Posts = len(res.Posts)
			fs.GeneratedAt = &generatedAt
			fs.Stale = !fresh
		}
		feeds = append(feeds, fs)
	}

	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
		"feeds":   feeds,
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
