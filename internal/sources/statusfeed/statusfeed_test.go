package statusfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cakahlul/em-cockpit/internal/tracker"
)

func rssBody(items ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Status</title>`
	for _, it := range items {
		body += it
	}
	return body + `</channel></rss>`
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
		title, link, published.Format(time.RFC1123Z))
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListActiveIncidents(t *testing.T) {
	now := time.Now()
	srv := serveFeed(t, rssBody(
		rssItem("Major outage affecting API", "https://status.example.com/1", now.Add(-time.Hour)),
		rssItem("Degraded performance on search", "https://status.example.com/2", now.Add(-2*time.Hour)),
	))

	src := New([]Feed{{Service: "example", URL: srv.URL}})
	got, err := src.ListActiveIncidents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(got))
	}
	for _, in := range got {
		if in.Service != "example" {
			t.Errorf("expected service example, got %s", in.Service)
		}
		if in.ID == "" {
			t.Error("expected non-empty incident id")
		}
		if !in.Active() {
			t.Errorf("expected firing incident, got %s", in.Status)
		}
	}
}

func TestOldEntriesDropped(t *testing.T) {
	now := time.Now()
	srv := serveFeed(t, rssBody(
		rssItem("Recent incident", "https://s/1", now.Add(-time.Hour)),
		rssItem("Ancient incident", "https://s/2", now.Add(-30*24*time.Hour)),
	))

	src := New([]Feed{{Service: "example", URL: srv.URL}})
	got, err := src.ListActiveIncidents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the recent entry, got %d", len(got))
	}
	if got[0].Description != "Recent incident" {
		t.Errorf("unexpected incident: %+v", got[0])
	}
}

func TestResolvedEntries(t *testing.T) {
	now := time.Now()
	srv := serveFeed(t, rssBody(
		rssItem("Resolved: database connectivity", "https://s/1", now.Add(-time.Hour)),
	))

	src := New([]Feed{{Service: "example", URL: srv.URL}})
	got, err := src.ListActiveIncidents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(got))
	}
	if got[0].Status != tracker.IncidentResolved {
		t.Errorf("expected resolved, got %s", got[0].Status)
	}
	if got[0].ResolvedAt == nil {
		t.Error("expected resolved timestamp")
	}
}

func TestFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New([]Feed{{Service: "broken", URL: srv.URL}})
	_, err := src.ListActiveIncidents(context.Background())
	if err == nil {
		t.Fatal("expected error from failing feed")
	}
	var terr *tracker.Error
	if !errors.As(err, &terr) || terr.Kind != tracker.KindNetwork {
		t.Errorf("expected network-kind error, got %v", err)
	}
}

func TestInferSeverity(t *testing.T) {
	cases := []struct {
		title string
		want  tracker.Severity
	}{
		{"Critical outage on payments", tracker.SeverityCritical},
		{"Full outage", tracker.SeverityCritical},
		{"Major incident: elevated errors", tracker.SeverityHigh},
		{"Degraded performance", tracker.SeverityMedium},
		{"Partial disruption", tracker.SeverityMedium},
		{"Scheduled maintenance", tracker.SeverityLow},
	}
	for _, c := range cases {
		now := time.Now()
		srv := serveFeed(t, rssBody(rssItem(c.title, "https://s/1", now)))
		src := New([]Feed{{Service: "x", URL: srv.URL}})
		got, err := src.ListActiveIncidents(context.Background())
		if err != nil {
			t.Fatalf("list %q: %v", c.title, err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 incident for %q, got %d", c.title, len(got))
		}
		if got[0].Severity != c.want {
			t.Errorf("%q: expected %s, got %s", c.title, c.want, got[0].Severity)
		}
	}
}

func TestEntryIDStable(t *testing.T) {
	a := entryID("svc", "https://s/1", "title")
	b := entryID("svc", "https://s/1", "title")
	if a != b {
		t.Error("expected deterministic ids")
	}
	if a == entryID("svc", "https://s/2", "title") {
		t.Error("expected different links to produce different ids")
	}
}

func TestMultipleFeeds(t *testing.T) {
	now := time.Now()
	srvA := serveFeed(t, rssBody(rssItem("Incident A", "https://a/1", now)))
	srvB := serveFeed(t, rssBody(rssItem("Incident B", "https://b/1", now)))

	src := New([]Feed{
		{Service: "alpha", URL: srvA.URL},
		{Service: "beta", URL: srvB.URL},
	})
	got, err := src.ListActiveIncidents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 incidents across feeds, got %d", len(got))
	}
	if got[0].Service != "alpha" || got[1].Service != "beta" {
		t.Errorf("unexpected services: %s, %s", got[0].Service, got[1].Service)
	}
}
