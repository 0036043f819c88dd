// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/beshoynasry/estates/internal/catalog"
	"github.com/beshoynasry/estates/internal/dashboard"
	"github.com/beshoynasry/estates/internal/database"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/landing"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/poller"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// pages rendered inside layout.html.
var pageTemplates = []string{"landing.html", "gallery.html", "detail.html", "dashboard.html", "diagnostics.html", "error.html"}

// Timeouts applied to page loads that wait on the listings API.
const (
	pageLoadTimeout = 20 * time.Second
	sessionCookie   = "estates_dashboard"
)

// Options wires the server's collaborators.
type Options struct {
	Store database.Store
	// Gallery reads straight from the API; Listings goes through the cache.
	Gallery  listings.Source
	Listings *listings.CachedSource
	Sessions *dashboard.Sessions
	Reporter *diagnostics.Reporter
	// Poller is optional; without it /api/refresh answers 503.
	Poller *poller.Poller
	Log    *logrus.Logger

	AssetBaseURL string
	DefaultImage string
}

// Server is the main HTTP server.
type Server struct {
	opts     Options
	log      *logrus.Logger
	router   chi.Router
	pages    map[string]*template.Template
	httpSrv  *http.Server
	gallery  catalog.CardOptions
	dashCard catalog.CardOptions
}

// New creates a new server.
func New(opts Options) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		log:      opts.Log,
		pages:    pages,
		gallery:  catalog.GalleryCardOptions(opts.AssetBaseURL, opts.DefaultImage),
		dashCard: catalog.DashboardCardOptions(opts.AssetBaseURL, opts.DefaultImage),
	}
	s.setupRoutes()
	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	base, err := template.New("").Funcs(template.FuncMap{
		"timeAgo": timeAgo,
		"delay":   func(i int) int { return i * 200 },
	}).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/healthz", s.handleHealth)

	// Pages.
	r.Get("/", s.handleLanding)
	r.Get("/projects", s.handleGallery)
	r.Get("/Projects/{section}/{id}", s.handleDetail)
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", s.handleDashboard)
		r.Post("/delete", s.handleDashboardDelete)
		r.Get("/diagnostics", s.handleDiagnostics)
	})

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/gallery", s.handleAPIGallery)
		r.Get("/properties/{category}", s.handleAPIListProperties)
		r.Delete("/properties/{category}/{id}", s.handleAPIDeleteProperty)
		r.Get("/diagnostics", s.handleAPIDiagnostics)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Post("/refresh", s.handleRefresh)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusNotFound, "Page not found.")
	})

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.WithField("addr", addr).Info("server starting")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, status int, page string, data map[string]interface{}) {
	t, ok := s.pages[page]
	if !ok {
		s.log.WithField("page", page).Error("unknown page template")
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.WithError(err).WithField("page", page).Error("template error")
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.render(w, status, "error.html", map[string]interface{}{
		"Title":     http.StatusText(status),
		"Active":    "",
		"Status":    status,
		"Message":   message,
		"Animation": landing.DefaultAnimation.JSON(),
	})
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
