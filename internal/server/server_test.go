package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/beshoynasry/estates/internal/cache"
	"github.com/beshoynasry/estates/internal/dashboard"
	"github.com/beshoynasry/estates/internal/database"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/listings/listingstest"
	"github.com/beshoynasry/estates/internal/logger"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/beshoynasry/estates/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	api    *listingstest.API
	store  *database.DB
	server *Server
	cookie *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := listingstest.New(t)
	store, err := database.New(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.Discard()
	reporter := diagnostics.NewReporter(log, store)
	client := listings.NewClient(api.URL(), nil, 5*time.Second)
	cached := listings.NewCachedSource(client, cache.NewMemory(time.Minute), log)
	sessions := dashboard.NewSessions(cached, reporter, log)

	srv, err := New(Options{
		Store:    store,
		Gallery:  client,
		Listings: cached,
		Sessions: sessions,
		Reporter: reporter,
		Poller: poller.New(poller.Config{
			Store:    store,
			Listings: cached,
			Sessions: sessions,
			Reporter: reporter,
			Log:      log,
		}),
		Log:          log,
		AssetBaseURL: "https://assets.example",
		DefaultImage: "/static/img/placeholder.svg",
	})
	require.NoError(t, err)
	return &harness{api: api, store: store, server: srv}
}

func (h *harness) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			h.cookie = c
		}
	}
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func listing(id, desc string) model.Listing {
	return model.Listing{ID: id, Title: "Project " + id, Description: desc, ImageRefs: []string{"/uploads/" + id + ".jpg"}}
}

func seedFeatureFive(h *harness) {
	h.api.Seed(model.Feature,
		listing("1", "Infinity pool overlooking the marina"),
		listing("2", "Quiet townhouse"),
		listing("abc123", "Rooftop POOL and gym"),
		listing("4", "Garden villa"),
		listing("5", ""),
	)
}

func TestGalleryOneCategoryFails(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("GET /off-plan", http.StatusInternalServerError)
	h.api.Seed(model.Feature, listing("f1", strings.Repeat("a", 200)), listing("f2", "short"))
	h.api.Seed(model.Luxury, listing("l1", "x"), listing("l2", "y"))

	rec := h.do(t, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	offPlan := doc.Find("section#off-plan")
	assert.Equal(t, 0, offPlan.Find(".card").Length())
	assert.Equal(t, "No off-plan projects available.", strings.TrimSpace(offPlan.Find(".status").Text()))

	feature := doc.Find("section#feature .card")
	assert.Equal(t, 2, feature.Length())
	href, _ := feature.First().Attr("href")
	assert.Equal(t, "/Projects/Features2/f1", href)
	src, _ := feature.First().Find("img").Attr("src")
	assert.Equal(t, "https://assets.example/uploads/f1.jpg", src)
	assert.Equal(t, strings.Repeat("a", 120)+"...", feature.First().Find("p").Text())

	assert.Equal(t, 2, doc.Find("section#laxury .card").Length())

	diags, err := h.store.GetDiagnostics(10)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "off-plan", diags[0].Category)
}

func TestDashboardSearch(t *testing.T) {
	h := newHarness(t)
	seedFeatureFive(h)

	rec := h.do(t, http.MethodGet, "/dashboard/?category=feature&q=pool", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.cookie, "session cookie is set")
	doc := parse(t, rec)

	cards := doc.Find(".dashboard-card")
	require.Equal(t, 2, cards.Length())
	id0, _ := cards.Eq(0).Attr("data-id")
	id1, _ := cards.Eq(1).Attr("data-id")
	assert.Equal(t, "1", id0)
	assert.Equal(t, "abc123", id1)

	selected, _ := doc.Find("select[name=category] option[selected]").Attr("value")
	assert.Equal(t, "feature", selected)
	value, _ := doc.Find("input[name=q]").Attr("value")
	assert.Equal(t, "pool", value)

	// Clearing the search shows everything, without a refetch.
	doc = parse(t, h.do(t, http.MethodGet, "/dashboard/?q=", nil))
	assert.Equal(t, 5, doc.Find(".dashboard-card").Length())
	assert.Equal(t, 1, h.api.Calls("GET /feature"))
}

func TestDashboardDelete(t *testing.T) {
	h := newHarness(t)
	seedFeatureFive(h)
	h.do(t, http.MethodGet, "/dashboard/?category=feature", nil)

	rec := h.do(t, http.MethodPost, "/dashboard/delete", url.Values{"id": {"abc123"}, "category": {"feature"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/?category=feature", rec.Header().Get("Location"))

	doc := parse(t, h.do(t, http.MethodGet, "/dashboard/", nil))
	assert.Equal(t, 4, doc.Find(".dashboard-card").Length())
	assert.Equal(t, 0, doc.Find(`.dashboard-card[data-id="abc123"]`).Length())

	form, _ := doc.Find(`.dashboard-card[data-id="4"] form input[name=category]`).Attr("value")
	assert.Equal(t, "feature", form)

	// A failed delete keeps the card and records a diagnostic.
	h.api.Fail("DELETE /feature", http.StatusInternalServerError)
	rec = h.do(t, http.MethodPost, "/dashboard/delete", url.Values{"id": {"2"}, "category": {"feature"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	doc = parse(t, h.do(t, http.MethodGet, "/dashboard/", nil))
	assert.Equal(t, 1, doc.Find(`.dashboard-card[data-id="2"]`).Length())

	diags, err := h.store.GetDiagnostics(10)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "delete", diags[0].Op)
	assert.Equal(t, "2", diags[0].ListingID)

	doc = parse(t, h.do(t, http.MethodGet, "/dashboard/diagnostics", nil))
	assert.Contains(t, doc.Find("table.diagnostics").Text(), "feature")
}

func TestDashboardRecoversAfterFailedLoad(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("GET /off-plan", http.StatusBadGateway)
	doc := parse(t, h.do(t, http.MethodGet, "/dashboard/", nil))
	require.Equal(t, 1, doc.Find(".status.error").Length())

	h.api.Fail("GET /off-plan", 0)
	h.api.Seed(model.OffPlan, listing("o1", "Canal view"), listing("o2", "Marina view"))

	for i, target := range []string{"/dashboard/", "/dashboard/?category=off-plan", "/dashboard/?category=off-plan&q="} {
		doc = parse(t, h.do(t, http.MethodGet, target, nil))
		assert.Equal(t, 0, doc.Find(".status.error").Length(), target)
		assert.Equal(t, 2, doc.Find(".dashboard-card").Length(), target)
		if i == 0 {
			assert.Equal(t, 2, h.api.Calls("GET /off-plan"))
		}
	}
}

func TestDashboardRefetchesOnVisit(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(model.Feature, listing("f1", "Pool"))

	doc := parse(t, h.do(t, http.MethodGet, "/dashboard/?category=feature", nil))
	require.Equal(t, 1, doc.Find(".dashboard-card").Length())

	h.api.Seed(model.Feature, listing("f1", "Pool"), listing("f2", "Garden"))
	doc = parse(t, h.do(t, http.MethodGet, "/dashboard/?category=feature", nil))
	assert.Equal(t, 2, doc.Find(".dashboard-card").Length())
	assert.Equal(t, 2, h.api.Calls("GET /feature"))

	// Submitting a search filters what is loaded.
	doc = parse(t, h.do(t, http.MethodGet, "/dashboard/?category=feature&q=garden", nil))
	assert.Equal(t, 1, doc.Find(".dashboard-card").Length())
	assert.Equal(t, 2, h.api.Calls("GET /feature"))
}

func TestDashboardDeleteUsesCardCategory(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(model.Feature, listing("abc123", "Feature home"))
	h.api.Seed(model.Luxury, listing("abc123", "Luxury home"))

	// Two tabs on one session: feature first, then luxury.
	h.do(t, http.MethodGet, "/dashboard/?category=feature", nil)
	h.do(t, http.MethodGet, "/dashboard/?category=laxury", nil)

	rec := h.do(t, http.MethodPost, "/dashboard/delete", url.Values{"id": {"abc123"}, "category": {"feature"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/?category=feature", rec.Header().Get("Location"))
	assert.Zero(t, h.api.Calls("DELETE /feature/abc123"))
	assert.Zero(t, h.api.Calls("DELETE /laxury/abc123"))
	assert.Len(t, h.api.Listings(model.Feature), 1)
	assert.Len(t, h.api.Listings(model.Luxury), 1)

	rec = h.do(t, http.MethodPost, "/dashboard/delete", url.Values{"id": {"abc123"}, "category": {"laxury"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, h.api.Calls("DELETE /laxury/abc123"))
	assert.Empty(t, h.api.Listings(model.Luxury))
	assert.Len(t, h.api.Listings(model.Feature), 1)

	rec = h.do(t, http.MethodPost, "/dashboard/delete", url.Values{"id": {"abc123"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardLoadError(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("GET /off-plan", http.StatusBadGateway)

	doc := parse(t, h.do(t, http.MethodGet, "/dashboard/", nil))
	assert.Equal(t, "Error: could not load properties.", strings.TrimSpace(doc.Find(".status.error").Text()))

	rec := h.do(t, http.MethodGet, "/dashboard/?category=penthouse", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailPage(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(model.OffPlan, listing("op1", "Canal-side apartments"))

	rec := h.do(t, http.MethodGet, "/Projects/Off-Plan2/op1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	assert.Equal(t, "Project op1", doc.Find("article.detail h1").Text())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/Projects/Off-Plan2/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/Projects/Villas/op1", nil).Code)

	h.api.Fail("GET /feature", http.StatusInternalServerError)
	assert.Equal(t, http.StatusBadGateway, h.do(t, http.MethodGet, "/Projects/Features2/x", nil).Code)
}

func TestLandingShowsHeadlines(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()
	_, _, err := h.store.AddNewsItem(&model.NewsItem{FeedURL: "https://n.example/rss", GUID: "1", Title: "Rents steady", Link: "https://n.example/1", PublishedAt: now, FetchedAt: now})
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	assert.Equal(t, "Rents steady", doc.Find(".headlines a").Text())
	assert.Equal(t, 7, doc.Find("main section").Length())

	anim, _ := doc.Find("body").Attr("data-animation")
	assert.JSONEq(t, `{"duration":1500,"easing":"ease-in-out","once":true,"mirror":false}`, anim)
}

func TestAPIProperties(t *testing.T) {
	h := newHarness(t)
	seedFeatureFive(h)

	rec := h.do(t, http.MethodGet, "/api/properties/feature?q=POOL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total int             `json:"total"`
		Count int             `json:"count"`
		Items []model.Listing `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Total)
	assert.Equal(t, 2, body.Count)

	rec = h.do(t, http.MethodDelete, "/api/properties/feature/abc123", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/properties/feature/abc123", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/properties/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.api.Fail("GET /laxury", http.StatusInternalServerError)
	rec = h.do(t, http.MethodGet, "/api/properties/luxury", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/diagnostics?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var diags struct {
		Diagnostics []model.Diagnostic `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diags))
	assert.Len(t, diags.Diagnostics, 2)
}

func TestAPIGallery(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(model.Luxury, listing("l1", "Sky villa"))

	rec := h.do(t, http.MethodGet, "/api/gallery", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Loading  bool `json:"loading"`
		Sections []struct {
			Category string       `json:"category"`
			Cards    []model.Card `json:"cards"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Loading)
	require.Len(t, body.Sections, 3)
	assert.Equal(t, "laxury", body.Sections[2].Category)
	require.Len(t, body.Sections[2].Cards, 1)
	assert.Equal(t, "/Projects/Luxury2/l1", body.Sections[2].Cards[0].Href)
}

func TestSettingsAndRefresh(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(`{"refresh_interval": 1}`))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","refresh_interval":5}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/settings", nil)
	assert.JSONEq(t, `{"refresh_interval":5}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.api.Calls("GET /off-plan"))

	rec = h.do(t, http.MethodGet, "/healthz", nil)
	assert.JSONEq(t, `{"status":"ok","database":"SQLite"}`, rec.Body.String())
}

func TestStaticAndNotFound(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/static/img/placeholder.svg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found.")
}
