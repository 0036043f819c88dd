// Package listingstest provides an in-process fake of the listings API.
package listingstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/beshoynasry/estates/internal/model"
)

// API is a fake listings API. Zero value is not usable; call New.
type API struct {
	Server *httptest.Server

	mu       sync.Mutex
	sets     map[string][]model.Listing
	failures map[string]int
	calls    map[string]int
}

// New starts a fake API that is closed with the test.
func New(t testing.TB) *API {
	a := &API{
		sets:     make(map[string][]model.Listing),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Server.Close)
	return a
}

// URL is the API root.
func (a *API) URL() string { return a.Server.URL }

// Seed replaces the listing set of a category.
func (a *API) Seed(c model.Category, listings ...model.Listing) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sets[c.Path()] = append([]model.Listing(nil), listings...)
}

// Fail makes every request whose "METHOD /path" starts with key answer
// with status. Status 0 clears the failure.
func (a *API) Fail(key string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if status == 0 {
		delete(a.failures, key)
		return
	}
	a.failures[key] = status
}

// Calls reports how many requests matched "METHOD /path".
func (a *API) Calls(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[key]
}

// Listings returns the current set of a category.
func (a *API) Listings(c model.Category) []model.Listing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Listing(nil), a.sets[c.Path()]...)
}

func (a *API) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	a.mu.Lock()
	a.calls[key]++
	for prefix, status := range a.failures {
		if strings.HasPrefix(key, prefix) {
			a.mu.Unlock()
			http.Error(w, "injected failure", status)
			return
		}
	}
	defer a.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && len(parts) == 1:
		set, ok := a.sets[parts[0]]
		if !ok {
			set = []model.Listing{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(set)
	case r.Method == http.MethodDelete && len(parts) == 2:
		set := a.sets[parts[0]]
		for i, l := range set {
			if l.ID == parts[1] {
				a.sets[parts[0]] = append(set[:i:i], set[i+1:]...)
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}
