package cmd

import (
	"fmt"

	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/config"
	"github.com/cakahlul/em-cockpit/internal/incidents"
	"github.com/cakahlul/em-cockpit/internal/prs"
	"github.com/cakahlul/em-cockpit/internal/search"
	"github.com/cakahlul/em-cockpit/internal/sources/snapshot"
	"github.com/cakahlul/em-cockpit/internal/sources/statusfeed"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// app is the wired object graph shared by the one-shot commands.
type app struct {
	cfg   *config.Config
	cache *cache.Cache

	// snap is nil when no snapshot file is configured.
	snap *snapshot.Source
	// incidentSrc is nil when no status feeds are configured.
	incidentSrc tracker.IncidentSource
}

func buildApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, cache: c}

	if cfg.SnapshotFile != "" {
		snap, err := snapshot.Open(cfg.SnapshotFile)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("opening snapshot: %w", err)
		}
		a.snap = snap
	}

	if len(cfg.StatusFeeds) > 0 {
		feeds := make([]statusfeed.Feed, 0, len(cfg.StatusFeeds))
		for _, f := range cfg.StatusFeeds {
			feeds = append(feeds, statusfeed.Feed{Service: f.Service, URL: f.URL})
		}
		a.incidentSrc = statusfeed.New(feeds)
	}

	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	var store cache.Store
	switch cfg.Cache.Backend {
	case "", "sqlite":
		s, err := cache.OpenSQLite(config.CachePath())
		if err != nil {
			return nil, fmt.Errorf("opening cache db: %w", err)
		}
		store = s
	case "redis":
		store = cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			UseTLS:   cfg.Cache.Redis.TLS,
		})
	case "memory":
		// store stays nil; the fast tier is the whole cache.
	}

	c, err := cache.NewWithSize(store, cfg.MemorySize())
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func (a *app) prAggregator() (*prs.Aggregator, error) {
	if a.snap == nil {
		return nil, fmt.Errorf("no snapshot_file configured; set one in %s", config.DefaultConfigPath())
	}
	return prs.New(a.snap, a.cache, prs.Config{
		Repositories:   a.cfg.Repositories,
		StaleThreshold: a.cfg.StaleThresholdDuration(),
		CacheTTL:       a.cfg.PRSummaryTTL(),
		ReviewerID:     a.cfg.Reviewer.ID,
		ReviewerName:   a.cfg.Reviewer.Name,
	}), nil
}

func (a *app) incidentMonitor() (*incidents.Monitor, error) {
	if a.incidentSrc == nil {
		return nil, fmt.Errorf("no status_feeds configured; add one in %s", config.DefaultConfigPath())
	}
	return incidents.New(a.incidentSrc, a.cache, incidents.Config{
		Services:      a.cfg.Services,
		CacheTTL:      a.cfg.IncidentSummaryTTL(),
		AlertSeverity: a.cfg.AlertSeverityLevel(),
	}), nil
}

func (a *app) searchService() (*search.Service, error) {
	if a.snap == nil {
		return nil, fmt.Errorf("no snapshot_file configured; set one in %s", config.DefaultConfigPath())
	}
	return search.New(a.snap.Tickets(), a.cache).WithCacheTTL(a.cfg.SearchTTL()), nil
}
