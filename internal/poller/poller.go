// Package poller runs the site's periodic background work: warming the
// listing cache, pulling news, pruning diagnostics and idle sessions.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/beshoynasry/estates/internal/news"
	"github.com/sirupsen/logrus"
)

// MinRefreshIntervalMinutes is the minimum allowed interval.
const MinRefreshIntervalMinutes = 5

// DiagnosticsRetention is how long diagnostics are kept.
const DiagnosticsRetention = 7 * 24 * time.Hour

// Refresher force-fetches a category into the cache.
type Refresher interface {
	Refresh(ctx context.Context, c model.Category) ([]model.Listing, error)
}

// Store is the storage the poller needs.
type Store interface {
	GetRefreshInterval() (int, error)
	CleanupDiagnostics(before time.Time) (int64, error)
}

// SessionSweeper drops idle dashboard sessions.
type SessionSweeper interface {
	Sweep(maxIdle time.Duration) int
}

// Config wires the poller's collaborators. News and Sessions may be nil.
type Config struct {
	Store       Store
	Listings    Refresher
	News        *news.Fetcher
	Sessions    SessionSweeper
	SessionIdle time.Duration
	Reporter    *diagnostics.Reporter
	Log         logrus.FieldLogger
}

// Poller runs continuous polling.
type Poller struct {
	cfg      Config
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a background poller.
func New(cfg Config) *Poller {
	return &Poller{cfg: cfg, stopChan: make(chan struct{})}
}

// Summary describes one poll cycle.
type Summary struct {
	Categories    int
	Failed        int
	NewNewsItems  int
	PrunedDiags   int64
	SweptSessions int
}

// RunOnce performs a single cycle.
func (p *Poller) RunOnce(ctx context.Context) Summary {
	var s Summary
	log := p.cfg.Log

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range model.Categories() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.cfg.Listings.Refresh(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			s.Categories++
			if err != nil {
				s.Failed++
				p.cfg.Reporter.Report(diagnostics.OpRefresh, c, "", err)
			}
		}()
	}
	wg.Wait()

	if p.cfg.News != nil {
		for _, r := range p.cfg.News.FetchAll(ctx) {
			if r.Error != nil {
				p.cfg.Reporter.ReportGeneral(diagnostics.OpNews, r.Error)
				continue
			}
			s.NewNewsItems += r.NewItems
		}
	}

	pruned, err := p.cfg.Store.CleanupDiagnostics(time.Now().Add(-DiagnosticsRetention))
	if err != nil {
		log.WithError(err).Warn("diagnostics cleanup failed")
	}
	s.PrunedDiags = pruned

	if p.cfg.Sessions != nil && p.cfg.SessionIdle > 0 {
		s.SweptSessions = p.cfg.Sessions.Sweep(p.cfg.SessionIdle)
	}
	return s
}

// Interval returns the configured refresh interval, clamped to the minimum.
func (p *Poller) Interval() time.Duration {
	interval, err := p.cfg.Store.GetRefreshInterval()
	if err != nil {
		p.cfg.Log.WithError(err).Warn("reading refresh interval")
	}
	if interval < MinRefreshIntervalMinutes {
		interval = MinRefreshIntervalMinutes
	}
	return time.Duration(interval) * time.Minute
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			interval := p.Interval()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			s := p.RunOnce(ctx)
			cancel()

			p.cfg.Log.WithFields(logrus.Fields{
				"categories":     s.Categories,
				"failed":         s.Failed,
				"news_items":     s.NewNewsItems,
				"pruned":         s.PrunedDiags,
				"swept_sessions": s.SweptSessions,
				"next_in":        interval.String(),
			}).Info("poller cycle complete")

			select {
			case <-p.stopChan:
				return
			case <-time.After(interval):
			}
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
