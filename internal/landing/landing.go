// Package landing describes the presentational pages: which sections the
// homepage shows, in what order, and how each view configures its scroll
// animations.
package landing

import (
	"encoding/json"

	"github.com/beshoynasry/estates/internal/model"
)

// Animation is the scroll-animation setup of one view. The page script
// initialises it once per page load; nothing is shared between views.
type Animation struct {
	Duration int    `json:"duration"`
	Easing   string `json:"easing"`
	Once     bool   `json:"once"`
	Mirror   bool   `json:"mirror"`
}

// JSON renders the config for a data attribute.
func (a Animation) JSON() string {
	b, _ := json.Marshal(a)
	return string(b)
}

// Per-view animation settings.
var (
	HomeAnimation     = Animation{Duration: 1500, Easing: "ease-in-out", Once: true, Mirror: false}
	ProjectsAnimation = Animation{Duration: 1200, Easing: "ease-in-out", Once: false, Mirror: true}
	DefaultAnimation  = Animation{Duration: 800, Easing: "ease-in-out", Once: true, Mirror: false}
)

// Section is one block of the homepage.
type Section struct {
	ID      string
	Heading string
	Body    string
	Items   []string
	Effect  string // data-aos effect name
}

// Sections returns the homepage sections in display order.
func Sections() []Section {
	return []Section{
		{
			ID:      "hero",
			Heading: "Find your place in the city",
			Body:    "Off-plan launches, featured homes and luxury residences, curated by people who know the market.",
			Effect:  "fade-up",
		},
		{
			ID:      "presentation",
			Heading: "Who we are",
			Body:    "An independent brokerage helping buyers and investors move with confidence from first viewing to handover.",
			Effect:  "fade-right",
		},
		{
			ID:      "services",
			Heading: "Services",
			Items:   []string{"Off-plan advisory", "Resale and leasing", "Property management", "Mortgage introductions"},
			Effect:  "fade-up",
		},
		{
			ID:      "reviews",
			Heading: "What clients say",
			Items: []string{
				"Clear advice and no pressure. We closed in three weeks.",
				"They found us an off-plan unit before it was public.",
			},
			Effect: "zoom-in",
		},
		{
			ID:      "team",
			Heading: "Our team",
			Body:    "Advisors covering every major community.",
			Effect:  "fade-left",
		},
		{
			ID:      "agents",
			Heading: "Meet the agents",
			Body:    "Talk to a specialist for the area you have in mind.",
			Effect:  "fade-up",
		},
	}
}

// MaxHeadlines is how many news items the homepage shows.
const MaxHeadlines = 5

// Page is everything the homepage template needs.
type Page struct {
	Sections  []Section
	Headlines []model.NewsItem
	Animation Animation
}

// NewPage composes the homepage.
func NewPage(headlines []model.NewsItem) Page {
	if len(headlines) > MaxHeadlines {
		headlines = headlines[:MaxHeadlines]
	}
	return Page{
		Sections:  Sections(),
		Headlines: headlines,
		Animation: HomeAnimation,
	}
}
