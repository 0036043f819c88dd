// Package listings talks to the external listings API.
package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beshoynasry/estates/internal/model"
)

// ErrNotFound is returned when the API (or a listing set) has no such listing.
var ErrNotFound = errors.New("listing not found")

// StatusError is returned for non-success responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Source is anything that can list and delete listings of a category.
type Source interface {
	List(ctx context.Context, c model.Category) ([]model.Listing, error)
	Delete(ctx context.Context, c model.Category, id string) error
}

// Client is a Source backed by the listings HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Source = (*Client)(nil)

// NewClient creates a client for the API rooted at baseURL. A nil
// httpClient gets a default one with the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) endpoint(cat model.Category, id string) (string, error) {
	if !cat.Valid() {
		return "", fmt.Errorf("invalid category %s", cat)
	}
	u := c.baseURL + "/" + cat.Path()
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u, nil
}

// List fetches every listing of a category in response order.
func (c *Client) List(ctx context.Context, cat model.Category) ([]model.Listing, error) {
	u, err := c.endpoint(cat, "")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cat, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, &StatusError{Method: http.MethodGet, URL: u, Code: res.StatusCode}
	}

	var listings []model.Listing
	if err := json.NewDecoder(res.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decode %s listings: %w", cat, err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

// Delete removes one listing. Any 2xx status is success; the body is ignored.
func (c *Client) Delete(ctx context.Context, cat model.Category, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: empty id", cat)
	}
	u, err := c.endpoint(cat, id)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", cat, id, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Method: http.MethodDelete, URL: u, Code: res.StatusCode}
	}
	return nil
}

// Find returns the listing with id from a Source's category set.
func Find(ctx context.Context, src Source, cat model.Category, id string) (model.Listing, error) {
	all, err := src.List(ctx, cat)
	if err != nil {
		return model.Listing{}, err
	}
	for _, l := range all {
		if l.ID == id {
			return l, nil
		}
	}
	return model.Listing{}, fmt.Errorf("%s/%s: %w", cat, id, ErrNotFound)
}
