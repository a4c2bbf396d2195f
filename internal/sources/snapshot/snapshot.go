// Package snapshot reads pull requests and tickets from a local JSON export.
// It backs the CLI when no live tracker integration is configured: teams dump
// their tracker state on a schedule and point the cockpit at the file.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// File is the on-disk export format.
type File struct {
	PullRequests []tracker.PullRequest `json:"pull_requests"`
	Tickets      []tracker.Ticket      `json:"tickets"`
}

// Source serves tracker data from a snapshot file. The file is re-read on
// every listing so a refreshed export is picked up without a restart.
type Source struct {
	path string

	mu   sync.Mutex
	data File
	ok   bool
}

// Open creates a source over the snapshot at path and verifies it parses.
func Open(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return tracker.NewError(tracker.KindNetwork, fmt.Sprintf("reading snapshot %s", s.path), err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return tracker.NewError(tracker.KindParse, fmt.Sprintf("parsing snapshot %s", s.path), err)
	}

	s.mu.Lock()
	s.data = f
	s.ok = true
	s.mu.Unlock()
	return nil
}

func (s *Source) snapshot() (File, error) {
	err := s.reload()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// Serve the last good parse if one exists.
		if s.ok {
			return s.data, nil
		}
		return File{}, err
	}
	return s.data, nil
}

// FindByID returns the pull request with the given repository and id.
func (s *Source) FindByID(ctx context.Context, repo, id string) (tracker.PullRequest, error) {
	f, err := s.snapshot()
	if err != nil {
		return tracker.PullRequest{}, err
	}
	for _, pr := range f.PullRequests {
		if pr.Repository == repo && pr.ID == id {
			return pr, nil
		}
	}
	return tracker.PullRequest{}, tracker.NotFoundf("pr %s/%s", repo, id)
}

// FindByReviewer returns open pull requests where userID is a reviewer.
func (s *Source) FindByReviewer(ctx context.Context, userID string, filter tracker.PRFilter) ([]tracker.PullRequest, error) {
	f, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var out []tracker.PullRequest
	for _, pr := range f.PullRequests {
		if pr.State != tracker.PROpen || !matchesFilter(pr, filter) {
			continue
		}
		for _, r := range pr.Reviewers {
			if r.User.ID == userID {
				out = append(out, pr)
				break
			}
		}
	}
	return limited(out, filter.Limit), nil
}

// ListOpen returns the open pull requests matching the filter.
func (s *Source) ListOpen(ctx context.Context, filter tracker.PRFilter) ([]tracker.PullRequest, error) {
	f, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var out []tracker.PullRequest
	for _, pr := range f.PullRequests {
		if pr.State == tracker.PROpen && matchesFilter(pr, filter) {
			out = append(out, pr)
		}
	}
	return limited(out, filter.Limit), nil
}

// TicketByID returns the ticket with the given key.
func (s *Source) TicketByID(ctx context.Context, id string) (tracker.Ticket, error) {
	f, err := s.snapshot()
	if err != nil {
		return tracker.Ticket{}, err
	}
	for _, t := range f.Tickets {
		if strings.EqualFold(t.Key, id) {
			return t, nil
		}
	}
	return tracker.Ticket{}, tracker.NotFoundf("ticket %s", id)
}

// SearchTickets returns tickets whose key or summary contains the query text.
func (s *Source) SearchTickets(ctx context.Context, query tracker.TicketQuery) ([]tracker.Ticket, error) {
	f, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query.Text)
	var out []tracker.Ticket
	for _, t := range f.Tickets {
		if query.Assignee != "" && (t.Assignee == nil || t.Assignee.ID != query.Assignee) {
			continue
		}
		if query.Status != "" && !strings.EqualFold(t.Status.Name, query.Status) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Key), needle) &&
			!strings.Contains(strings.ToLower(t.Summary), needle) {
			continue
		}
		out = append(out, t)
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// Tickets adapts the source to the ticket interface, whose method names
// collide with the pull request ones.
func (s *Source) Tickets() tracker.TicketSource { return ticketView{s} }

type ticketView struct{ s *Source }

func (v ticketView) FindByID(ctx context.Context, id string) (tracker.Ticket, error) {
	return v.s.TicketByID(ctx, id)
}

func (v ticketView) Search(ctx context.Context, query tracker.TicketQuery) ([]tracker.Ticket, error) {
	return v.s.SearchTickets(ctx, query)
}

func matchesFilter(pr tracker.PullRequest, filter tracker.PRFilter) bool {
	if len(filter.Repositories) == 0 {
		return true
	}
	for _, repo := range filter.Repositories {
		if pr.Repository == repo {
			return true
		}
	}
	return false
}

func limited(prs []tracker.PullRequest, limit int) []tracker.PullRequest {
	if limit > 0 && len(prs) > limit {
		return prs[:limit]
	}
	return prs
}
