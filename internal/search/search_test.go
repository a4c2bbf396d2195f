package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

type fakeTickets struct {
	tickets     []tracker.Ticket
	findCalls   int
	searchCalls int
	findErr     error
}

func (f *fakeTickets) FindByID(ctx context.Context, id string) (tracker.Ticket, error) {
	f.findCalls++
	if f.findErr != nil {
		return tracker.Ticket{}, f.findErr
	}
	for _, t := range f.tickets {
		if t.Key == id {
			return t, nil
		}
	}
	return tracker.Ticket{}, tracker.NotFoundf("ticket %s", id)
}

func (f *fakeTickets) Search(ctx context.Context, q tracker.TicketQuery) ([]tracker.Ticket, error) {
	f.searchCalls++
	var out []tracker.Ticket
	for _, t := range f.tickets {
		if strings.Contains(strings.ToLower(t.Summary), strings.ToLower(q.Text)) ||
			strings.Contains(strings.ToLower(t.Key), strings.ToLower(q.Text)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func ticket(key, summary string, age time.Duration) tracker.Ticket {
	now := time.Now()
	return tracker.Ticket{
		ID:        key,
		Key:       key,
		Summary:   summary,
		Status:    tracker.TicketStatus{Name: "In Progress", Category: "in_progress"},
		CreatedAt: now.Add(-age - time.Hour),
		UpdatedAt: now.Add(-age),
	}
}

func TestIsTicketID(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"PROJ-123", true},
		{"proj-123", true},
		{"AB-1", true},
		{"PROJ123", false},
		{"123-PROJ", false},
		{"fix login", false},
		{"#42", false},
	}
	for _, c := range cases {
		q := Query{Text: c.text}
		if got := q.IsTicketID(); got != c.want {
			t.Errorf("IsTicketID(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestIsPRNumber(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"#42", true},
		{"#0", true},
		{"42", false},
		{"#abc", false},
		{"#", false},
	}
	for _, c := range cases {
		q := Query{Text: c.text}
		if got := q.IsPRNumber(); got != c.want {
			t.Errorf("IsPRNumber(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestTicketIDFastPath(t *testing.T) {
	src := &fakeTickets{tickets: []tracker.Ticket{
		ticket("PROJ-123", "Fix login flow", time.Hour),
	}}
	svc := New(src, nil)

	results, err := svc.Search(context.Background(), Query{Text: "proj-123"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "PROJ-123" {
		t.Errorf("expected PROJ-123, got %s", results[0].ID)
	}
	if src.searchCalls != 0 {
		t.Errorf("expected direct lookup only, got %d search calls", src.searchCalls)
	}
	// Direct hits start from the boosted base score.
	if results[0].Score < 2.0 {
		t.Errorf("expected boosted score for direct hit, got %.2f", results[0].Score)
	}
}

func TestTicketIDMissFallsThrough(t *testing.T) {
	src := &fakeTickets{tickets: []tracker.Ticket{
		ticket("OTHER-1", "Mentions PROJ-999 in summary", time.Hour),
	}}
	svc := New(src, nil)

	results, err := svc.Search(context.Background(), Query{Text: "PROJ-999"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if src.searchCalls != 1 {
		t.Errorf("expected fallthrough to full-text search, got %d calls", src.searchCalls)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 full-text result, got %d", len(results))
	}
}

func TestTicketIDLookupError(t *testing.T) {
	src := &fakeTickets{findErr: errors.New("tracker down")}
	svc := New(src, nil)

	if _, err := svc.Search(context.Background(), Query{Text: "PROJ-1"}); err == nil {
		t.Fatal("expected non-notfound lookup error to propagate")
	}
}

func TestRankingPrefersRecentAndExact(t *testing.T) {
	src := &fakeTickets{tickets: []tracker.Ticket{
		ticket("PROJ-1", "alpha work", 30*24*time.Hour),
		ticket("PROJ-2", "alpha work", 30*time.Minute),
	}}
	svc := New(src, nil)

	results, err := svc.Search(context.Background(), Query{Text: "alpha"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// The fresh ticket gets the 1.5x recency boost, the month-old one 0.8x.
	if results[0].ID != "PROJ-2" {
		t.Errorf("expected recent ticket first, got %s", results[0].ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("expected descending scores, got %.2f then %.2f", results[0].Score, results[1].Score)
	}
}

func TestRecencyFactor(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want float64
	}{
		{30 * time.Minute, 1.5},
		{5 * time.Hour, 1.2},
		{3 * 24 * time.Hour, 1.0},
		{30 * 24 * time.Hour, 0.8},
	}
	for _, c := range cases {
		if got := recencyFactor(c.age); got != c.want {
			t.Errorf("recencyFactor(%s) = %.1f, want %.1f", c.age, got, c.want)
		}
	}
}

func TestIDMatchFactor(t *testing.T) {
	if got := idMatchFactor("PROJ-42", "proj-42"); got != 2.0 {
		t.Errorf("expected 2.0 for exact match, got %.1f", got)
	}
	if got := idMatchFactor("PROJ-420", "proj-42"); got != 1.5 {
		t.Errorf("expected 1.5 for substring match, got %.1f", got)
	}
	if got := idMatchFactor("OTHER-1", "proj"); got != 1.0 {
		t.Errorf("expected 1.0 for no match, got %.1f", got)
	}
}

func TestLimit(t *testing.T) {
	var tickets []tracker.Ticket
	for i := 0; i < 15; i++ {
		tickets = append(tickets, ticket("PROJ-"+string(rune('A'+i)), "widget cleanup", time.Hour))
	}
	svc := New(&fakeTickets{tickets: tickets}, nil)
	ctx := context.Background()

	results, err := svc.Search(ctx, Query{Text: "widget"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, len(results))
	}

	results, err = svc.Search(ctx, Query{Text: "cleanup", Limit: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestSearchCached(t *testing.T) {
	src := &fakeTickets{tickets: []tracker.Ticket{
		ticket("PROJ-1", "cache me", time.Hour),
	}}
	c, err := cache.New(nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	svc := New(src, c)
	ctx := context.Background()

	if _, err := svc.Search(ctx, Query{Text: "cache"}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := svc.Search(ctx, Query{Text: "cache"}); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if src.searchCalls != 1 {
		t.Errorf("expected 1 source search with warm cache, got %d", src.searchCalls)
	}

	// A different query text is a different cache key.
	if _, err := svc.Search(ctx, Query{Text: "me"}); err != nil {
		t.Fatalf("third search: %v", err)
	}
	if src.searchCalls != 2 {
		t.Errorf("expected cache miss for new text, got %d calls", src.searchCalls)
	}
}

func TestResultMetadata(t *testing.T) {
	tk := ticket("PROJ-9", "metadata check", time.Hour)
	tk.Assignee = &tracker.User{ID: "u1", Name: "Frank"}
	tk.Priority = "High"
	svc := New(&fakeTickets{tickets: []tracker.Ticket{tk}}, nil)

	results, err := svc.Search(context.Background(), Query{Text: "metadata"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Type != TypeTicket {
		t.Errorf("expected ticket type, got %s", r.Type)
	}
	if r.Metadata.Assignee != "Frank" || r.Metadata.Priority != "High" {
		t.Errorf("unexpected metadata: %+v", r.Metadata)
	}
	if r.Metadata.Status != "In Progress" {
		t.Errorf("unexpected status: %q", r.Metadata.Status)
	}
}
