// Package news fetches market-news headlines shown on the landing page.
package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/beshoynasry/estates/internal/model"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// Fetch limits. Publishers often serve several feeds from one host, so
// requests are also spaced per host.
const (
	MaxConcurrencyPostgres = 4
	// MaxConcurrencySQLite is 1 because SQLite serializes writers anyway.
	MaxConcurrencySQLite = 1
	FeedsPerHost         = 2
	HostSpacing          = 500 * time.Millisecond
	// MaxItemsPerFeed caps how many entries of one feed are kept per fetch.
	MaxItemsPerFeed = 20
)

// Store is the storage the fetcher needs.
type Store interface {
	SupportsHighConcurrency() bool
	AddNewsItem(item *model.NewsItem) (int64, bool, error)
}

type hostSlot struct {
	inflight chan struct{}
	next     time.Time
}

// hostGate admits at most perHost concurrent fetches per news host and
// hands out start times at least spacing apart.
type hostGate struct {
	spacing time.Duration
	perHost int

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

func newHostGate(spacing time.Duration, perHost int) *hostGate {
	return &hostGate{spacing: spacing, perHost: perHost, hosts: make(map[string]*hostSlot)}
}

func (g *hostGate) slot(host string) *hostSlot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.hosts[host]
	if !ok {
		s = &hostSlot{inflight: make(chan struct{}, g.perHost)}
		g.hosts[host] = s
	}
	return s
}

// enter blocks until host has a free slot and the reserved start time has
// come. Every successful enter must be paired with leave.
func (g *hostGate) enter(ctx context.Context, host string) error {
	s := g.slot(host)
	select {
	case s.inflight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	start := s.next
	if now := time.Now(); start.Before(now) {
		start = now
	}
	s.next = start.Add(g.spacing)
	g.mu.Unlock()

	wait := time.Until(start)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		<-s.inflight
		return ctx.Err()
	}
}

func (g *hostGate) leave(host string) {
	<-g.slot(host).inflight
}

// feedHost is the lower-cased host of a feed URL, or the URL itself when it
// does not parse.
func feedHost(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return strings.ToLower(u.Hostname())
}

// Fetcher pulls headlines from the configured feeds into the store.
type Fetcher struct {
	db          Store
	feeds       []string
	parser      *gofeed.Parser
	concurrency int
	gate        *hostGate
	log         logrus.FieldLogger
}

// NewFetcher creates a fetcher with concurrency based on database type.
func NewFetcher(db Store, feeds []string, log logrus.FieldLogger) *Fetcher {
	concurrency := MaxConcurrencySQLite
	if db.SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	return &Fetcher{
		db:          db,
		feeds:       feeds,
		parser:      gofeed.NewParser(),
		concurrency: concurrency,
		gate:        newHostGate(HostSpacing, FeedsPerHost),
		log:         log,
	}
}

// Feeds returns the configured feed URLs.
func (f *Fetcher) Feeds() []string { return f.feeds }

// FetchFeed fetches and parses one feed, storing new headlines.
// Returns the number of new items added.
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (int, error) {
	host := feedHost(feedURL)
	if err := f.gate.enter(ctx, host); err != nil {
		return 0, fmt.Errorf("waiting for %s: %w", host, err)
	}
	defer f.gate.leave(host)

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	now := time.Now()
	newCount := 0
	for i, item := range parsed.Items {
		if i >= MaxItemsPerFeed {
			break
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" || item.Title == "" {
			continue
		}
		pubDate := now
		if item.PublishedParsed != nil {
			pubDate = *item.PublishedParsed
		}
		_, isNew, err := f.db.AddNewsItem(&model.NewsItem{
			FeedURL:     feedURL,
			GUID:        guid,
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: pubDate,
			FetchedAt:   now,
		})
		if err != nil {
			f.log.WithError(err).WithField("guid", guid).Warn("error adding news item")
			continue
		}
		if isNew {
			newCount++
		}
	}
	return newCount, nil
}

// FetchResult holds the result of fetching a single feed.
type FetchResult struct {
	FeedURL  string
	NewItems int
	Error    error
}

// FetchAll fetches every configured feed with a worker pool. Failed feeds
// are reported in the results and do not stop the others.
func (f *Fetcher) FetchAll(ctx context.Context) []FetchResult {
	if len(f.feeds) == 0 {
		return nil
	}

	feedChan := make(chan string)
	resultChan := make(chan FetchResult, len(f.feeds))

	var wg sync.WaitGroup
	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feedURL := range feedChan {
				n, err := f.FetchFeed(ctx, feedURL)
				resultChan <- FetchResult{FeedURL: feedURL, NewItems: n, Error: err}
			}
		}()
	}

	go func() {
		defer close(feedChan)
		for _, feedURL := range f.feeds {
			select {
			case <-ctx.Done():
				return
			case feedChan <- feedURL:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]FetchResult, 0, len(f.feeds))
	for r := range resultChan {
		results = append(results, r)
	}
	return results
}
