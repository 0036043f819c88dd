package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beshoynasry/estates/internal/cache"
	"github.com/beshoynasry/estates/internal/config"
	"github.com/beshoynasry/estates/internal/dashboard"
	"github.com/beshoynasry/estates/internal/database"
	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/beshoynasry/estates/internal/logger"
	"github.com/beshoynasry/estates/internal/news"
	"github.com/beshoynasry/estates/internal/poller"
	"github.com/beshoynasry/estates/internal/server"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	log := logger.New("estates", cfg.LogLevel)
	if !cfg.IsDevelopment() {
		logger.SetJSON(log)
	}
	log.WithField("env", cfg.Env).Info("starting")

	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}
	defer store.Close()
	log.WithField("database", store.DatabaseType()).Info("database ready")

	listingCache, closeCache, err := openCache(cfg)
	if err != nil {
		log.WithError(err).Fatal("connecting to cache")
	}
	defer closeCache()

	reporter := diagnostics.NewReporter(log, store)
	client := listings.NewClient(cfg.ListingsAPIURL, nil, cfg.HTTPClientTimeout)
	cached := listings.NewCachedSource(client, listingCache, log)
	sessions := dashboard.NewSessions(cached, reporter, log)

	var fetcher *news.Fetcher
	if len(cfg.NewsFeedURLs) > 0 {
		fetcher = news.NewFetcher(store, cfg.NewsFeedURLs, log)
		log.WithField("feeds", fetcher.Feeds()).Info("market news enabled")
	}

	p := poller.New(poller.Config{
		Store:       store,
		Listings:    cached,
		News:        fetcher,
		Sessions:    sessions,
		SessionIdle: cfg.SessionIdleTimeout,
		Reporter:    reporter,
		Log:         log,
	})
	p.Start()

	srv, err := server.New(server.Options{
		Store:        store,
		Gallery:      client,
		Listings:     cached,
		Sessions:     sessions,
		Reporter:     reporter,
		Poller:       p,
		Log:          log,
		AssetBaseURL: cfg.AssetBaseURL,
		DefaultImage: cfg.DefaultImage,
	})
	if err != nil {
		log.WithError(err).Fatal("creating server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.HTTPAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	p.Stop()
	log.Info("stopped")
}

// openStore picks PostgreSQL when DATABASE_URL is set, SQLite otherwise.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.DatabaseURL != "" {
		return database.NewPostgres(cfg.DatabaseURL)
	}
	return database.New(cfg.SQLitePath)
}

// openCache picks Redis when REDIS_URL is set, an in-process cache otherwise.
func openCache(cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(cfg.CacheTTL), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return r, func() { r.Close() }, nil
}
