// Package dashboard implements the internal property dashboard: one
// selected category, a search term and a delete action.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beshoynasry/estates/internal/catalog"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/sirupsen/logrus"
)

// Status of the board's listing query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the query state for the selected category. Listings is only
// set when Status is StatusReady and Err only when it is StatusError.
type State struct {
	Status   Status
	Category model.Category
	Listings []model.Listing
	Err      error
}

// DefaultCategory is selected on a fresh board.
const DefaultCategory = model.OffPlan

// Board holds one dashboard session. Every fetch carries a sequence number
// and only the newest one may write the state, so a slow response for a
// previously selected category is dropped. Switching category also cancels
// the superseded request.
type Board struct {
	src    listings.Source
	report *diagnostics.Reporter
	log    logrus.FieldLogger

	mu       sync.Mutex
	category model.Category
	search   string
	state    State
	seq      uint64
	cancel   context.CancelFunc
	settled  chan struct{}
}

// NewBoard creates an idle board on DefaultCategory.
func NewBoard(src listings.Source, report *diagnostics.Reporter, log logrus.FieldLogger) *Board {
	return &Board{
		src:      src,
		report:   report,
		log:      log,
		category: DefaultCategory,
		state:    State{Status: StatusIdle, Category: DefaultCategory},
	}
}

// Show prepares the board for a page view of category c. A view that only
// changes the search term keeps loaded or in-flight data. Any other view of
// the current category refetches it past the source's cache.
func (b *Board) Show(c model.Category, searchOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case c != b.category || b.state.Status == StatusIdle:
		b.category = c
		b.startLocked(false)
	case searchOnly && (b.state.Status == StatusReady || b.state.Status == StatusLoading):
	default:
		b.startLocked(true)
	}
}

// refresher is implemented by sources that keep a cache.
type refresher interface {
	Refresh(ctx context.Context, c model.Category) ([]model.Listing, error)
}

func (b *Board) startLocked(fresh bool) {
	b.supersedeLocked()
	b.seq++
	seq, c := b.seq, b.category
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.state = State{Status: StatusLoading, Category: c}
	settled := make(chan struct{})
	b.settled = settled

	fetch := b.src.List
	if r, ok := b.src.(refresher); ok && fresh {
		fetch = r.Refresh
	}
	go func() {
		got, err := fetch(ctx, c)
		b.finish(seq, c, got, err, settled)
	}()
}

func (b *Board) finish(seq uint64, c model.Category, got []model.Listing, err error, settled chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		b.log.WithFields(logrus.Fields{"category": c.Path(), "seq": seq}).Debug("discarding stale listing response")
		return
	}
	b.cancel()
	b.cancel = nil
	if err != nil {
		b.report.Report(diagnostics.OpList, c, "", err)
		b.state = State{Status: StatusError, Category: c, Err: err}
	} else {
		b.state = State{Status: StatusReady, Category: c, Listings: got}
	}
	close(settled)
}

// Wait blocks until the current fetch settles or ctx is done. A fetch that
// is superseded while waiting hands over to its successor.
func (b *Board) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		settled, status := b.settled, b.state.Status
		b.mu.Unlock()
		if settled == nil || status != StatusLoading {
			return nil
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SetSearch replaces the search term.
func (b *Board) SetSearch(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = q
}

// Search returns the current search term.
func (b *Board) Search() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.search
}

// Category returns the selected category.
func (b *Board) Category() model.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category
}

// State returns the current query state.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.state
	st.Listings = append([]model.Listing(nil), st.Listings...)
	return st
}

// Visible returns the ready listings filtered by the search term, or nil
// while not ready.
func (b *Board) Visible() []model.Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Status != StatusReady {
		return nil
	}
	return catalog.FilterByText(append([]model.Listing(nil), b.state.Listings...), b.search)
}

// Errors returned by Delete before any request is made.
var (
	ErrNotReady         = errors.New("dashboard not ready")
	ErrCategoryMismatch = errors.New("listing is not in the category on display")
)

// Delete removes listing id of category c, which must be the loaded
// category. On success the entry is dropped from the local set; on failure
// the failure is reported and the set is left unchanged.
func (b *Board) Delete(ctx context.Context, c model.Category, id string) error {
	b.mu.Lock()
	cur, status := b.category, b.state.Status
	b.mu.Unlock()
	if status != StatusReady {
		return ErrNotReady
	}
	if c != cur {
		return fmt.Errorf("%w: showing %s, got %s", ErrCategoryMismatch, cur.Path(), c.Path())
	}

	if err := b.src.Delete(ctx, c, id); err != nil {
		b.report.Report(diagnostics.OpDelete, c, id, err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Status == StatusReady && b.state.Category == c {
		b.state.Listings = removeByID(b.state.Listings, id)
	}
	return nil
}

func removeByID(in []model.Listing, id string) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

// supersedeLocked cancels the in-flight fetch, if any, and wakes its
// waiters. Its response will no longer match b.seq.
func (b *Board) supersedeLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.settled != nil && b.state.Status == StatusLoading {
		close(b.settled)
		b.settled = nil
	}
}

// Close cancels any in-flight fetch and drops its response.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supersedeLocked()
	b.seq++
	if b.state.Status == StatusLoading {
		b.state = State{Status: StatusIdle, Category: b.category}
	}
}
