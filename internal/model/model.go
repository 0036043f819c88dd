// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is one of the three partitions the listings API exposes.
type Category int

const (
	OffPlan Category = iota
	Feature
	Luxury
)

type categoryInfo struct {
	path         string
	label        string
	emptyMessage string
	detailPrefix string
}

// categoryTable is the single place category strings live.
var categoryTable = [...]categoryInfo{
	OffPlan: {"off-plan", "Off Plan", "No off-plan projects available.", "/Projects/Off-Plan2"},
	Feature: {"feature", "Features", "No features projects available.", "/Projects/Features2"},
	Luxury:  {"laxury", "Luxury", "No luxury projects available.", "/Projects/Luxury2"},
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{OffPlan, Feature, Luxury}
}

func (c Category) info() categoryInfo {
	if c < OffPlan || c > Luxury {
		return categoryInfo{}
	}
	return categoryTable[c]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return c >= OffPlan && c <= Luxury }

// Path is the endpoint segment used by the listings API.
func (c Category) Path() string { return c.info().path }

// Label is the human readable section title.
func (c Category) Label() string { return c.info().label }

// EmptyMessage is shown when a category has nothing to render.
func (c Category) EmptyMessage() string { return c.info().emptyMessage }

// DetailPrefix is the route prefix of the per-listing detail pages.
func (c Category) DetailPrefix() string { return c.info().detailPrefix }

// DetailURL returns the detail page link for a listing id.
func (c Category) DetailURL(id string) string {
	return c.DetailPrefix() + "/" + id
}

func (c Category) String() string {
	if p := c.Path(); p != "" {
		return p
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory accepts the endpoint path of a category. "luxury" is
// accepted as an alias for the API's "laxury" spelling.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "luxury" {
		return Luxury, nil
	}
	for _, c := range Categories() {
		if c.Path() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// CategoryForDetailSection maps the section segment of a detail route
// (e.g. "Off-Plan2") back to its category.
func CategoryForDetailSection(section string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(strings.TrimPrefix(c.DetailPrefix(), "/Projects/"), section) {
			return c, true
		}
	}
	return 0, false
}

// Listing is a single property record returned by the listings API.
type Listing struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageRefs   []string `json:"imgSrcs"`
}

// UnmarshalJSON accepts both payload shapes the API serves: galleries carry
// "imgSrcs", the dashboard payload a single "imageProperty".
func (l *Listing) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            string   `json:"_id"`
		Title         string   `json:"title"`
		Description   *string  `json:"description"`
		ImgSrcs       []string `json:"imgSrcs"`
		ImageProperty string   `json:"imageProperty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ID = raw.ID
	l.Title = raw.Title
	l.Description = ""
	if raw.Description != nil {
		l.Description = *raw.Description
	}
	l.ImageRefs = nil
	for _, ref := range raw.ImgSrcs {
		if ref != "" {
			l.ImageRefs = append(l.ImageRefs, ref)
		}
	}
	if len(l.ImageRefs) == 0 && raw.ImageProperty != "" {
		l.ImageRefs = []string{raw.ImageProperty}
	}
	return nil
}

// FirstImage returns the first image path or "" when there is none.
func (l Listing) FirstImage() string {
	if len(l.ImageRefs) == 0 {
		return ""
	}
	return l.ImageRefs[0]
}

// Card is a listing prepared for display.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	ImageURL string `json:"image_url"`
	Href     string `json:"href"`
}

// Diagnostic records a swallowed failure of an external call.
type Diagnostic struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Category  string    `json:"category,omitempty"`
	ListingID string    `json:"listing_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewsItem is a market-news headline pulled from an external feed.
type NewsItem struct {
	ID          int64
	FeedURL     string
	GUID        string // unique identifier from feed
	Title       string
	Link        string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// Settings key constants.
const (
	SettingRefreshInterval = "refresh_interval_minutes"
)
