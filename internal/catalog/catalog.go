// Package catalog holds the pure listing transformations used by the pages:
// truncation, text filtering, image resolution and card building.
package catalog

import (
	"strings"

	"github.com/beshoynasry/estates/internal/model"
)

// Description lengths used by the two listing views.
const (
	GalleryExcerptLength   = 120
	DashboardExcerptLength = 100
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Truncate returns s unchanged when it has at most max characters, otherwise
// its first max characters followed by Ellipsis.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + Ellipsis
}

// FilterByText returns the listings whose description contains query,
// ignoring case. An empty query returns listings unchanged.
func FilterByText(listings []model.Listing, query string) []model.Listing {
	if query == "" {
		return listings
	}
	q := strings.ToLower(query)
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Description), q) {
			out = append(out, l)
		}
	}
	return out
}

// ResolveImage joins an image path onto base. Absolute URLs pass through
// and an empty ref yields fallback.
func ResolveImage(base, ref, fallback string) string {
	if ref == "" {
		return fallback
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// CardOptions controls how listings become cards.
type CardOptions struct {
	AssetBaseURL  string
	DefaultImage  string
	ExcerptLength int
	// Placeholders for blank fields; empty keeps the blank.
	EmptyTitle       string
	EmptyDescription string
}

// GalleryCardOptions returns the options used by the public gallery.
func GalleryCardOptions(assetBase, defaultImage string) CardOptions {
	return CardOptions{
		AssetBaseURL:  assetBase,
		DefaultImage:  defaultImage,
		ExcerptLength: GalleryExcerptLength,
	}
}

// DashboardCardOptions returns the options used by the internal dashboard.
func DashboardCardOptions(assetBase, defaultImage string) CardOptions {
	return CardOptions{
		AssetBaseURL:     assetBase,
		DefaultImage:     defaultImage,
		ExcerptLength:    DashboardExcerptLength,
		EmptyTitle:       "No location",
		EmptyDescription: "No description available",
	}
}

// NewCard prepares a listing of category c for display.
func NewCard(c model.Category, l model.Listing, opts CardOptions) model.Card {
	title := l.Title
	if title == "" {
		title = opts.EmptyTitle
	}
	excerpt := Truncate(l.Description, opts.ExcerptLength)
	if l.Description == "" && opts.EmptyDescription != "" {
		excerpt = opts.EmptyDescription
	}
	return model.Card{
		ID:       l.ID,
		Title:    title,
		Excerpt:  excerpt,
		ImageURL: ResolveImage(opts.AssetBaseURL, l.FirstImage(), opts.DefaultImage),
		Href:     c.DetailURL(l.ID),
	}
}

// NewCards maps NewCard over listings, preserving order.
func NewCards(c model.Category, listings []model.Listing, opts CardOptions) []model.Card {
	cards := make([]model.Card, 0, len(listings))
	for _, l := range listings {
		cards = append(cards, NewCard(c, l, opts))
	}
	return cards
}
