// Package prs aggregates pull requests across the monitored repositories,
// with stale detection and grouping.
package prs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// SummaryCacheKey is the cache key for the aggregated PR summary.
const SummaryCacheKey = "pr_summary"

const (
	// DefaultStaleThreshold marks a PR stale after this much inactivity.
	DefaultStaleThreshold = 48 * time.Hour
	// DefaultCacheTTL bounds how long a cached summary is served.
	DefaultCacheTTL = 2 * time.Minute
)

// Config holds the aggregator settings.
type Config struct {
	Repositories   []string
	StaleThreshold time.Duration
	CacheTTL       time.Duration
	// ReviewerID is the configured user's stable id; ReviewerName is the
	// display-name fallback. Name matching is weaker than id matching and
	// can collide, but some trackers only expose names on reviewer lists.
	ReviewerID   string
	ReviewerName string
}

func (c Config) staleThreshold() time.Duration {
	if c.StaleThreshold <= 0 {
		return DefaultStaleThreshold
	}
	return c.StaleThreshold
}

func (c Config) cacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return DefaultCacheTTL
	}
	return c.CacheTTL
}

// Summary is the derived view of all open PRs. It is recomputed from the
// full PR list on every refresh, never patched incrementally.
type Summary struct {
	TotalOpen      int            `json:"total_open"`
	PendingReview  int            `json:"pending_review"`
	StaleCount     int            `json:"stale_count"`
	ByRepository   map[string]int `json:"by_repository"`
	OldestStaleHrs int            `json:"oldest_stale_hours"`
	HasStale       bool           `json:"has_stale"`
	Level          alert.Level    `json:"level"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Group is one partition of a PR list with its stale count.
type Group struct {
	Label      string                `json:"label"`
	PRs        []tracker.PullRequest `json:"prs"`
	StaleCount int                   `json:"stale_count"`
}

// GroupCriterion selects how PRs are partitioned.
type GroupCriterion int

const (
	GroupByRepository GroupCriterion = iota
	GroupByAuthor
	GroupByAge
)

// Aggregator wraps a pull request source with cache-aside summaries.
type Aggregator struct {
	source tracker.PullRequestSource
	cache  *cache.Cache // nil disables caching
	cfg    Config
}

// New creates an aggregator. cache may be nil.
func New(source tracker.PullRequestSource, c *cache.Cache, cfg Config) *Aggregator {
	return &Aggregator{source: source, cache: c, cfg: cfg}
}

// Summary returns the aggregated PR view, serving a cached copy when one is
// still fresh.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	if a.cache != nil {
		var cached Summary
		if err := a.cache.Get(ctx, SummaryCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	prs, err := a.fetchOpen(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := a.compute(prs, time.Now())

	if a.cache != nil {
		if err := a.cache.Set(ctx, SummaryCacheKey, summary, a.cfg.cacheTTL()); err != nil {
			log.Printf("prs: caching summary: %v", err)
		}
	}
	return summary, nil
}

// OpenPRs fetches the current open PRs across the configured repositories.
func (a *Aggregator) OpenPRs(ctx context.Context) ([]tracker.PullRequest, error) {
	return a.fetchOpen(ctx)
}

// StalePRs fetches live and returns only PRs past the stale threshold. It
// deliberately bypasses the cached summary.
func (a *Aggregator) StalePRs(ctx context.Context) ([]tracker.PullRequest, error) {
	prs, err := a.fetchOpen(ctx)
	if err != nil {
		return nil, err
	}
	threshold := a.cfg.staleThreshold()
	now := time.Now()

	var stale []tracker.PullRequest
	for _, pr := range prs {
		if now.Sub(pr.UpdatedAt) > threshold {
			stale = append(stale, pr)
		}
	}
	return stale, nil
}

// PendingReview returns PRs where the configured user is a reviewer.
func (a *Aggregator) PendingReview(ctx context.Context) ([]tracker.PullRequest, error) {
	if a.cfg.ReviewerID == "" {
		return nil, nil
	}
	filter := tracker.PRFilter{Repositories: a.cfg.Repositories}
	prs, err := a.source.FindByReviewer(ctx, a.cfg.ReviewerID, filter)
	if err != nil {
		return nil, fmt.Errorf("fetching pending reviews: %w", err)
	}
	return prs, nil
}

// GroupBy partitions prs by the given criterion. Groups are sorted by
// descending stale count; ties keep the order in which each group's key was
// first seen.
func (a *Aggregator) GroupBy(prs []tracker.PullRequest, criterion GroupCriterion) []Group {
	threshold := a.cfg.staleThreshold()
	now := time.Now()

	byLabel := make(map[string]int)
	var groups []Group
	for _, pr := range prs {
		label := a.groupLabel(pr, criterion, now)
		idx, ok := byLabel[label]
		if !ok {
			idx = len(groups)
			byLabel[label] = idx
			groups = append(groups, Group{Label: label})
		}
		groups[idx].PRs = append(groups[idx].PRs, pr)
		if now.Sub(pr.UpdatedAt) > threshold {
			groups[idx].StaleCount++
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].StaleCount > groups[j].StaleCount
	})
	return groups
}

func (a *Aggregator) groupLabel(pr tracker.PullRequest, criterion GroupCriterion, now time.Time) string {
	switch criterion {
	case GroupByAuthor:
		return pr.Author.Name
	case GroupByAge:
		return ageBucket(now.Sub(pr.UpdatedAt))
	default:
		return pr.Repository
	}
}

func ageBucket(age time.Duration) string {
	switch {
	case age < 24*time.Hour:
		return "< 24 hours"
	case age < 48*time.Hour:
		return "24-48 hours"
	case age < 7*24*time.Hour:
		return "2-7 days"
	default:
		return "> 7 days"
	}
}

func (a *Aggregator) fetchOpen(ctx context.Context) ([]tracker.PullRequest, error) {
	filter := tracker.PRFilter{Repositories: a.cfg.Repositories}
	prs, err := a.source.ListOpen(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetching open prs: %w", err)
	}
	return prs, nil
}

func (a *Aggregator) compute(prs []tracker.PullRequest, now time.Time) Summary {
	threshold := a.cfg.staleThreshold()

	s := Summary{
		TotalOpen:    len(prs),
		ByRepository: make(map[string]int),
		GeneratedAt:  now,
	}
	for _, pr := range prs {
		s.ByRepository[pr.Repository]++

		if age := now.Sub(pr.UpdatedAt); age > threshold {
			s.StaleCount++
			if hrs := int(age.Hours()); hrs > s.OldestStaleHrs {
				s.OldestStaleHrs = hrs
			}
		}
		if a.isPendingReviewer(pr) {
			s.PendingReview++
		}
	}
	s.HasStale = s.StaleCount > 0
	s.Level = alert.Compute(0, s.StaleCount, s.PendingReview)
	return s
}

func (a *Aggregator) isPendingReviewer(pr tracker.PullRequest) bool {
	if a.cfg.ReviewerID == "" && a.cfg.ReviewerName == "" {
		return false
	}
	for _, r := range pr.Reviewers {
		if a.cfg.ReviewerID != "" && r.User.ID == a.cfg.ReviewerID {
			return true
		}
		// Display-name fallback; see Config.ReviewerName.
		if a.cfg.ReviewerName != "" && r.User.Name == a.cfg.ReviewerName {
			return true
		}
	}
	return false
}
