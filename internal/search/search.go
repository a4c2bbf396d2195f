// Package search provides unified ticket search with relevance ranking.
// Queries that look like ticket identifiers take a direct-lookup fast path
// before falling back to full-text search.
package search

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// DefaultCacheTTL bounds how long results for one query text are served
// from cache.
const DefaultCacheTTL = 5 * time.Minute

// DefaultLimit caps results when the caller does not set one.
const DefaultLimit = 10

var ticketIDPattern = regexp.MustCompile(`^[A-Z]+-\d+$`)

// ResultType tags what a search result refers to.
type ResultType string

const (
	TypeTicket      ResultType = "ticket"
	TypePullRequest ResultType = "pr"
	TypeIncident    ResultType = "incident"
)

// Result is one ranked search hit. The score is adjusted during ranking and
// frozen once the result is returned.
type Result struct {
	ID        string     `json:"id"`
	Type      ResultType `json:"type"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle,omitempty"`
	URL       string     `json:"url,omitempty"`
	Score     float64    `json:"score"`
	UpdatedAt time.Time  `json:"updated_at"`
	Metadata  Metadata   `json:"metadata"`
}

// Metadata carries display details alongside a result.
type Metadata struct {
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Query is one search request.
type Query struct {
	Text  string
	Limit int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// IsTicketID reports whether the query text looks like a ticket identifier
// such as PROJ-123.
func (q Query) IsTicketID() bool {
	return ticketIDPattern.MatchString(strings.ToUpper(q.Text))
}

// IsPRNumber reports whether the query text looks like a PR number such as
// #123.
func (q Query) IsPRNumber() bool {
	if !strings.HasPrefix(q.Text, "#") {
		return false
	}
	_, err := strconv.Atoi(q.Text[1:])
	return err == nil
}

// Service runs searches against a ticket source with cache-aside results
// keyed by the literal query text.
type Service struct {
	tickets  tracker.TicketSource
	cache    *cache.Cache // nil disables caching
	cacheTTL time.Duration
}

// New creates a search service. cache may be nil.
func New(tickets tracker.TicketSource, c *cache.Cache) *Service {
	return &Service{tickets: tickets, cache: c, cacheTTL: DefaultCacheTTL}
}

// WithCacheTTL overrides how long results are cached.
func (s *Service) WithCacheTTL(d time.Duration) *Service {
	if d > 0 {
		s.cacheTTL = d
	}
	return s
}

// Search returns ranked results for the query, most relevant first,
// truncated to the query limit.
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	cacheKey := "search:" + q.Text
	if s.cache != nil {
		var cached []Result
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := s.searchTickets(ctx, q)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range results {
		results[i].Score *= recencyFactor(now.Sub(results[i].UpdatedAt))
		results[i].Score *= idMatchFactor(results[i].ID, q.Text)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > q.limit() {
		results = results[:q.limit()]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, results, s.cacheTTL); err != nil {
			log.Printf("search: caching %q: %v", q.Text, err)
		}
	}
	return results, nil
}

func (s *Service) searchTickets(ctx context.Context, q Query) ([]Result, error) {
	// Identifier-shaped queries get a direct lookup first; a miss falls
	// through to full-text search.
	if q.IsTicketID() {
		ticket, err := s.tickets.FindByID(ctx, strings.ToUpper(q.Text))
		switch {
		case err == nil:
			r := fromTicket(ticket)
			r.Score = 2.0
			return []Result{r}, nil
		case !tracker.IsNotFound(err):
			return nil, fmt.Errorf("looking up %q: %w", q.Text, err)
		}
	}

	tickets, err := s.tickets.Search(ctx, tracker.TicketQuery{Text: q.Text, Limit: q.limit()})
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", q.Text, err)
	}

	results := make([]Result, 0, len(tickets))
	for _, t := range tickets {
		results = append(results, fromTicket(t))
	}
	return results, nil
}

func fromTicket(t tracker.Ticket) Result {
	r := Result{
		ID:        t.Key,
		Type:      TypeTicket,
		Title:     t.Summary,
		Subtitle:  t.Key + " • " + t.Status.Name,
		URL:       t.URL,
		Score:     1.0,
		UpdatedAt: t.UpdatedAt,
		Metadata: Metadata{
			Status:   t.Status.Name,
			Priority: t.Priority,
		},
	}
	if t.Assignee != nil {
		r.Metadata.Assignee = t.Assignee.Name
	}
	return r
}

func recencyFactor(age time.Duration) float64 {
	switch {
	case age < time.Hour:
		return 1.5
	case age < 24*time.Hour:
		return 1.2
	case age < 7*24*time.Hour:
		return 1.0
	default:
		return 0.8
	}
}

func idMatchFactor(id, query string) float64 {
	id = strings.ToLower(id)
	query = strings.ToLower(query)
	switch {
	case id == query:
		return 2.0
	case strings.Contains(id, query):
		return 1.5
	default:
		return 1.0
	}
}
