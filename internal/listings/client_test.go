package listings_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beshoynasry/estates/internal/cache"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/listings/listingstest"
	"github.com/beshoynasry/estates/internal/logger"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url string) *listings.Client {
	return listings.NewClient(url, nil, 5*time.Second)
}

func TestClientList(t *testing.T) {
	api := listingstest.New(t)
	api.Seed(model.Luxury,
		model.Listing{ID: "b", Title: "Second", ImageRefs: []string{"/x.jpg"}},
		model.Listing{ID: "a", Title: "First"},
	)

	got, err := newClient(api.URL()).List(context.Background(), model.Luxury)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "response order is kept")
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, 1, api.Calls("GET /laxury"))

	empty, err := newClient(api.URL()).List(context.Background(), model.OffPlan)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClientListFailures(t *testing.T) {
	api := listingstest.New(t)
	api.Fail("GET /off-plan", http.StatusInternalServerError)

	_, err := newClient(api.URL()).List(context.Background(), model.OffPlan)
	var se *listings.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer malformed.Close()
	_, err = newClient(malformed.URL).List(context.Background(), model.Feature)
	assert.ErrorContains(t, err, "decode feature listings")

	_, err = newClient(api.URL()).List(context.Background(), model.Category(9))
	assert.Error(t, err)
}

func TestClientDelete(t *testing.T) {
	api := listingstest.New(t)
	api.Seed(model.Feature, model.Listing{ID: "abc123"}, model.Listing{ID: "keep"})
	c := newClient(api.URL())

	require.NoError(t, c.Delete(context.Background(), model.Feature, "abc123"))
	assert.Len(t, api.Listings(model.Feature), 1)

	err := c.Delete(context.Background(), model.Feature, "abc123")
	assert.True(t, errors.Is(err, listings.ErrNotFound))

	assert.Error(t, c.Delete(context.Background(), model.Feature, ""))
}

func TestFind(t *testing.T) {
	api := listingstest.New(t)
	api.Seed(model.OffPlan, model.Listing{ID: "x1", Title: "Dunes"})
	c := newClient(api.URL())

	l, err := listings.Find(context.Background(), c, model.OffPlan, "x1")
	require.NoError(t, err)
	assert.Equal(t, "Dunes", l.Title)

	_, err = listings.Find(context.Background(), c, model.OffPlan, "missing")
	assert.ErrorIs(t, err, listings.ErrNotFound)
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	api := listingstest.New(t)
	api.Seed(model.Feature, model.Listing{ID: "1"}, model.Listing{ID: "2"})
	src := listings.NewCachedSource(newClient(api.URL()), cache.NewMemory(time.Minute), logger.Discard())

	_, err := src.List(ctx, model.Feature)
	require.NoError(t, err)
	_, err = src.List(ctx, model.Feature)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("GET /feature"), "second read is served from cache")

	require.NoError(t, src.Delete(ctx, model.Feature, "1"))
	got, err := src.List(ctx, model.Feature)
	require.NoError(t, err)
	assert.Equal(t, 2, api.Calls("GET /feature"), "delete invalidates the entry")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	_, err = src.Refresh(ctx, model.Feature)
	require.NoError(t, err)
	assert.Equal(t, 3, api.Calls("GET /feature"))

	api.Fail("DELETE /feature", http.StatusBadGateway)
	assert.Error(t, src.Delete(ctx, model.Feature, "2"))
	_, _ = src.List(ctx, model.Feature)
	assert.Equal(t, 3, api.Calls("GET /feature"), "failed delete keeps the cache")
}
