// Package incidents summarizes active incidents from a monitoring source,
// with severity tiers and per-service breakdowns.
package incidents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// SummaryCacheKey is the cache key for the aggregated incident summary.
const SummaryCacheKey = "incident_summary"

// DefaultCacheTTL bounds how long a cached summary is served. Incidents
// move fast, so the window is short.
const DefaultCacheTTL = 30 * time.Second

// Config holds the monitor settings.
type Config struct {
	Services []string
	CacheTTL time.Duration
	// AlertSeverity is the minimum severity that makes an incident
	// alertable.
	AlertSeverity tracker.Severity
}

func (c Config) cacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return DefaultCacheTTL
	}
	return c.CacheTTL
}

// Summary is the derived view of current incidents, recomputed in full on
// every refresh.
type Summary struct {
	TotalActive    int               `json:"total_active"`
	CriticalCount  int               `json:"critical_count"`
	HighCount      int               `json:"high_count"`
	MediumCount    int               `json:"medium_count"`
	LowCount       int               `json:"low_count"`
	ByService      map[string]int    `json:"by_service"`
	MostSevere     *tracker.Severity `json:"most_severe,omitempty"`
	LongestMinutes int               `json:"longest_duration_mins"`
	Level          alert.Level       `json:"level"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// Filter narrows incident listings.
type Filter struct {
	MinSeverity     *tracker.Severity
	Services        []string
	IncludeResolved bool
}

// Matches reports whether the incident passes the filter.
func (f Filter) Matches(in tracker.Incident) bool {
	if f.MinSeverity != nil && in.Severity < *f.MinSeverity {
		return false
	}
	if len(f.Services) > 0 && !contains(f.Services, in.Service) {
		return false
	}
	if !f.IncludeResolved && !in.Active() {
		return false
	}
	return true
}

// Monitor wraps an incident source with cache-aside summaries.
type Monitor struct {
	source tracker.IncidentSource
	cache  *cache.Cache // nil disables caching
	cfg    Config
}

// New creates a monitor. cache may be nil.
func New(source tracker.IncidentSource, c *cache.Cache, cfg Config) *Monitor {
	return &Monitor{source: source, cache: c, cfg: cfg}
}

// Summary returns the aggregated incident view, serving a cached copy when
// one is still fresh.
func (m *Monitor) Summary(ctx context.Context) (Summary, error) {
	if m.cache != nil {
		var cached Summary
		if err := m.cache.Get(ctx, SummaryCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	incidents, err := m.fetch(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := compute(incidents, time.Now())

	if m.cache != nil {
		if err := m.cache.Set(ctx, SummaryCacheKey, summary, m.cfg.cacheTTL()); err != nil {
			log.Printf("incidents: caching summary: %v", err)
		}
	}
	return summary, nil
}

// Incidents returns the current incidents matching the filter.
func (m *Monitor) Incidents(ctx context.Context, filter Filter) ([]tracker.Incident, error) {
	incidents, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var out []tracker.Incident
	for _, in := range incidents {
		if filter.Matches(in) {
			out = append(out, in)
		}
	}
	return out, nil
}

// Alertable returns active incidents at or above the configured alert
// severity.
func (m *Monitor) Alertable(ctx context.Context) ([]tracker.Incident, error) {
	min := m.cfg.AlertSeverity
	return m.Incidents(ctx, Filter{MinSeverity: &min})
}

// HasCritical reports whether any critical incident is active.
func (m *Monitor) HasCritical(ctx context.Context) (bool, error) {
	min := tracker.SeverityCritical
	crit, err := m.Incidents(ctx, Filter{MinSeverity: &min})
	if err != nil {
		return false, err
	}
	return len(crit) > 0, nil
}

func (m *Monitor) fetch(ctx context.Context) ([]tracker.Incident, error) {
	incidents, err := m.source.ListActiveIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching incidents: %w", err)
	}
	if len(m.cfg.Services) == 0 {
		return incidents, nil
	}
	var out []tracker.Incident
	for _, in := range incidents {
		if contains(m.cfg.Services, in.Service) {
			out = append(out, in)
		}
	}
	return out, nil
}

func compute(incidents []tracker.Incident, now time.Time) Summary {
	s := Summary{
		ByService:   make(map[string]int),
		GeneratedAt: now,
	}

	var mostSevere *tracker.Severity
	for _, in := range incidents {
		if sev := in.Severity; mostSevere == nil || sev > *mostSevere {
			mostSevere = &sev
		}
		if !in.Active() {
			continue
		}

		s.TotalActive++
		s.ByService[in.Service]++
		switch in.Severity {
		case tracker.SeverityCritical:
			s.CriticalCount++
		case tracker.SeverityHigh:
			s.HighCount++
		case tracker.SeverityMedium:
			s.MediumCount++
		case tracker.SeverityLow:
			s.LowCount++
		}

		if mins := int(now.Sub(in.StartedAt).Minutes()); mins > s.LongestMinutes {
			s.LongestMinutes = mins
		}
	}

	s.MostSevere = mostSevere
	s.Level = alert.Compute(s.TotalActive, 0, 0)
	return s
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
