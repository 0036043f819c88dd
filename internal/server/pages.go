package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/beshoynasry/estates/internal/catalog"
	"github.com/beshoynasry/estates/internal/dashboard"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/gallery"
	"github.com/beshoynasry/estates/internal/landing"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// --- Page Handlers ---

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	headlines, err := s.opts.Store.GetNewsItems(landing.MaxHeadlines)
	if err != nil {
		s.log.WithError(err).Warn("loading headlines")
	}
	page := landing.NewPage(headlines)
	s.render(w, http.StatusOK, "landing.html", map[string]interface{}{
		"Title":     "Home",
		"Active":    "home",
		"Page":      page,
		"Animation": page.Animation.JSON(),
	})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pageLoadTimeout)
	defer cancel()

	snap, err := gallery.Load(ctx, s.opts.Gallery, s.opts.Reporter)
	if err != nil {
		s.log.WithError(err).Warn("gallery load did not settle")
	}
	s.render(w, http.StatusOK, "gallery.html", map[string]interface{}{
		"Title":     "Projects",
		"Active":    "projects",
		"Loading":   snap.Loading,
		"Sections":  snap.Cards(s.gallery),
		"Animation": landing.ProjectsAnimation.JSON(),
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	c, ok := model.CategoryForDetailSection(chi.URLParam(r, "section"))
	if !ok {
		s.renderError(w, http.StatusNotFound, "Page not found.")
		return
	}
	id := chi.URLParam(r, "id")

	l, err := listings.Find(r.Context(), s.opts.Listings, c, id)
	if errors.Is(err, listings.ErrNotFound) {
		s.renderError(w, http.StatusNotFound, "This project is no longer listed.")
		return
	}
	if err != nil {
		s.opts.Reporter.Report(diagnostics.OpList, c, id, err)
		s.renderError(w, http.StatusBadGateway, "This project is unavailable right now.")
		return
	}

	images := make([]string, 0, len(l.ImageRefs))
	for _, ref := range l.ImageRefs {
		images = append(images, catalog.ResolveImage(s.opts.AssetBaseURL, ref, s.opts.DefaultImage))
	}
	if len(images) == 0 {
		images = append(images, s.opts.DefaultImage)
	}
	s.render(w, http.StatusOK, "detail.html", map[string]interface{}{
		"Title":     l.Title,
		"Active":    "projects",
		"Category":  c,
		"Listing":   l,
		"Images":    images,
		"Animation": landing.DefaultAnimation.JSON(),
	})
}

// board returns the dashboard board of the caller's session, setting the
// session cookie when a new session was created.
func (s *Server) board(w http.ResponseWriter, r *http.Request) *dashboard.Board {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	b, newID := s.opts.Sessions.Get(id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    newID,
			Path:     "/dashboard",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return b
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var selected *model.Category
	if raw := q.Get("category"); raw != "" {
		c, err := model.ParseCategory(raw)
		if err != nil {
			s.renderError(w, http.StatusBadRequest, "Unknown property type.")
			return
		}
		selected = &c
	}

	b := s.board(w, r)
	c := b.Category()
	if selected != nil {
		c = *selected
	}
	// The search form resubmits q; anything else counts as a fresh visit.
	_, searchOnly := q["q"]
	b.Show(c, searchOnly)
	if searchOnly {
		b.SetSearch(q.Get("q"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), pageLoadTimeout)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		s.log.WithError(err).Warn("dashboard load did not settle")
	}

	st := b.State()
	s.render(w, http.StatusOK, "dashboard.html", map[string]interface{}{
		"Title":      "Properties",
		"Active":     "dashboard",
		"Status":     st.Status.String(),
		"Category":   st.Category,
		"Categories": dashboardOptions(),
		"Search":     b.Search(),
		"Cards":      catalog.NewCards(st.Category, b.Visible(), s.dashCard),
		"Animation":  landing.DefaultAnimation.JSON(),
	})
}

// dashboardOptions lists the category selector in the dashboard's order.
func dashboardOptions() []model.Category {
	return []model.Category{model.Luxury, model.Feature, model.OffPlan}
}

func (s *Server) handleDashboardDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	id := r.PostForm.Get("id")
	if id == "" {
		s.renderError(w, http.StatusBadRequest, "Missing property id.")
		return
	}
	c, err := model.ParseCategory(r.PostForm.Get("category"))
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "Unknown property type.")
		return
	}

	b := s.board(w, r)
	// Source failures are reported by the board and the listing stays visible.
	if err := b.Delete(r.Context(), c, id); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"category": c.Path(),
			"id":       id,
		}).Warn("dashboard delete not applied")
	}

	back := url.Values{}
	back.Set("category", c.Path())
	if q := b.Search(); q != "" {
		back.Set("q", q)
	}
	http.Redirect(w, r, "/dashboard/?"+back.Encode(), http.StatusSeeOther)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := s.opts.Store.GetDiagnostics(100)
	if err != nil {
		s.log.WithError(err).Error("loading diagnostics")
		s.renderError(w, http.StatusInternalServerError, "Could not load diagnostics.")
		return
	}
	s.render(w, http.StatusOK, "diagnostics.html", map[string]interface{}{
		"Title":       "Diagnostics",
		"Active":      "dashboard",
		"Diagnostics": diags,
		"Animation":   landing.DefaultAnimation.JSON(),
	})
}
