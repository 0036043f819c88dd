// Package gallery loads the three public project sections.
package gallery

import (
	"context"
	"sync"

	"github.com/beshoynasry/estates/internal/catalog"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/model"
	"golang.org/x/sync/errgroup"
)

// Section is one category's slot of the gallery.
type Section struct {
	Category model.Category
	Listings []model.Listing
	// Failed is set when the fetch failed; Listings is then empty.
	Failed bool
}

// Label is the section heading.
func (s Section) Label() string { return s.Category.Label() }

// Snapshot is what the gallery page renders. While Loading is true every
// section shows a placeholder, even ones that already settled.
type Snapshot struct {
	Loading  bool
	Sections []Section
}

// View fetches all categories concurrently. Each fetch writes only its own
// slot and a failed category never affects the others.
type View struct {
	src    listings.Source
	report *diagnostics.Reporter

	mu      sync.Mutex
	loading bool
	slots   map[model.Category]Section
	done    chan struct{}
}

// NewView creates a gallery view reading from src.
func NewView(src listings.Source, report *diagnostics.Reporter) *View {
	return &View{
		src:    src,
		report: report,
		slots:  make(map[model.Category]Section),
	}
}

// Start issues one request per category. The requests stop when ctx is
// cancelled. Calling Start again while loading is a no-op.
func (v *View) Start(ctx context.Context) {
	v.mu.Lock()
	if v.loading {
		v.mu.Unlock()
		return
	}
	v.loading = true
	v.done = make(chan struct{})
	done := v.done
	v.mu.Unlock()

	var g errgroup.Group
	for _, c := range model.Categories() {
		g.Go(func() error {
			v.fetch(ctx, c)
			return nil
		})
	}
	go func() {
		g.Wait()
		v.mu.Lock()
		v.loading = false
		v.mu.Unlock()
		close(done)
	}()
}

func (v *View) fetch(ctx context.Context, c model.Category) {
	got, err := v.src.List(ctx, c)
	sec := Section{Category: c, Listings: got}
	if err != nil {
		v.report.Report(diagnostics.OpList, c, "", err)
		sec = Section{Category: c, Listings: []model.Listing{}, Failed: true}
	}
	v.mu.Lock()
	v.slots[c] = sec
	v.mu.Unlock()
}

// Wait blocks until the current load settles or ctx is done.
func (v *View) Wait(ctx context.Context) error {
	v.mu.Lock()
	done := v.done
	v.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state of all three sections in display order.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := Snapshot{Loading: v.loading}
	for _, c := range model.Categories() {
		sec, ok := v.slots[c]
		if !ok || v.loading {
			sec = Section{Category: c}
		}
		snap.Sections = append(snap.Sections, sec)
	}
	return snap
}

// Load runs a full load and returns the settled snapshot.
func Load(ctx context.Context, src listings.Source, report *diagnostics.Reporter) (Snapshot, error) {
	v := NewView(src, report)
	v.Start(ctx)
	if err := v.Wait(ctx); err != nil {
		return v.Snapshot(), err
	}
	return v.Snapshot(), nil
}

// CardSection is a section ready for the template.
type CardSection struct {
	Category     model.Category
	Label        string
	EmptyMessage string
	Cards        []model.Card
}

// Cards converts a settled snapshot into display cards.
func (s Snapshot) Cards(opts catalog.CardOptions) []CardSection {
	out := make([]CardSection, 0, len(s.Sections))
	for _, sec := range s.Sections {
		out = append(out, CardSection{
			Category:     sec.Category,
			Label:        sec.Category.Label(),
			EmptyMessage: sec.Category.EmptyMessage(),
			Cards:        catalog.NewCards(sec.Category, sec.Listings, opts),
		})
	}
	return out
}
