package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/beshoynasry/estates/internal/catalog"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/gallery"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/beshoynasry/estates/internal/poller"
	"github.com/go-chi/chi/v5"
)

// --- API Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": s.opts.Store.DatabaseType(),
	})
}

func (s *Server) handleAPIGallery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pageLoadTimeout)
	defer cancel()

	snap, _ := gallery.Load(ctx, s.opts.Gallery, s.opts.Reporter)
	sections := make([]map[string]interface{}, 0, len(snap.Sections))
	for _, sec := range snap.Cards(s.gallery) {
		sections = append(sections, map[string]interface{}{
			"category": sec.Category.Path(),
			"label":    sec.Label,
			"cards":    sec.Cards,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loading":  snap.Loading,
		"sections": sections,
	})
}

func (s *Server) handleAPIListProperties(w http.ResponseWriter, r *http.Request) {
	c, err := model.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := s.opts.Listings.List(r.Context(), c)
	if err != nil {
		s.opts.Reporter.Report(diagnostics.OpList, c, "", err)
		writeError(w, http.StatusBadGateway, "could not load properties")
		return
	}
	filtered := catalog.FilterByText(all, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": c.Path(),
		"total":    len(all),
		"count":    len(filtered),
		"items":    filtered,
	})
}

func (s *Server) handleAPIDeleteProperty(w http.ResponseWriter, r *http.Request) {
	c, err := model.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.opts.Listings.Delete(r.Context(), c, id); err != nil {
		s.opts.Reporter.Report(diagnostics.OpDelete, c, id, err)
		if errors.Is(err, listings.ErrNotFound) {
			writeError(w, http.StatusNotFound, "property not found")
			return
		}
		writeError(w, http.StatusBadGateway, "could not delete property")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	diags, err := s.opts.Store.GetDiagnostics(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load diagnostics")
		return
	}
	if diags == nil {
		diags = []model.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"diagnostics": diags})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshInterval int `json:"refresh_interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	// Enforce minimum.
	if req.RefreshInterval < poller.MinRefreshIntervalMinutes {
		req.RefreshInterval = poller.MinRefreshIntervalMinutes
	}
	if err := s.opts.Store.SetSetting(model.SettingRefreshInterval, strconv.Itoa(req.RefreshInterval)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "refresh_interval": req.RefreshInterval})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	interval, err := s.opts.Store.GetRefreshInterval()
	if err != nil {
		s.log.WithError(err).Warn("reading refresh interval")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refresh_interval": interval,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Poller == nil {
		writeError(w, http.StatusServiceUnavailable, "background refresh is disabled")
		return
	}
	sum := s.opts.Poller.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"categories": sum.Categories,
		"failed":     sum.Failed,
		"news_items": sum.NewNewsItems,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
