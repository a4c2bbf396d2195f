package incidents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

type fakeSource struct {
	incidents []tracker.Incident
	err       error
	calls     int
}

func (f *fakeSource) ListActiveIncidents(ctx context.Context) ([]tracker.Incident, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.incidents, nil
}

func incident(id, service string, sev tracker.Severity, age time.Duration) tracker.Incident {
	return tracker.Incident{
		ID:          id,
		Service:     service,
		Severity:    sev,
		Status:      tracker.IncidentFiring,
		StartedAt:   time.Now().Add(-age),
		Description: "incident " + id,
	}
}

func resolved(id, service string, sev tracker.Severity) tracker.Incident {
	in := incident(id, service, sev, 2*time.Hour)
	in.Status = tracker.IncidentResolved
	now := time.Now()
	in.ResolvedAt = &now
	return in
}

func TestSummaryCounts(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "payments", tracker.SeverityCritical, 90*time.Minute),
		incident("2", "payments", tracker.SeverityHigh, 10*time.Minute),
		incident("3", "search", tracker.SeverityLow, 5*time.Minute),
		resolved("4", "search", tracker.SeverityMedium),
	}}
	m := New(src, nil, Config{})

	s, err := m.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalActive != 3 {
		t.Errorf("expected 3 active, got %d", s.TotalActive)
	}
	if s.CriticalCount != 1 || s.HighCount != 1 || s.LowCount != 1 {
		t.Errorf("unexpected tier counts: %+v", s)
	}
	// Resolved incidents do not count toward tiers.
	if s.MediumCount != 0 {
		t.Errorf("expected 0 medium (resolved), got %d", s.MediumCount)
	}
	if s.ByService["payments"] != 2 || s.ByService["search"] != 1 {
		t.Errorf("unexpected service counts: %v", s.ByService)
	}
	if s.MostSevere == nil || *s.MostSevere != tracker.SeverityCritical {
		t.Errorf("expected most severe Critical, got %v", s.MostSevere)
	}
	if s.LongestMinutes < 90 {
		t.Errorf("expected longest duration >= 90m, got %d", s.LongestMinutes)
	}
	if s.Level != alert.Red {
		t.Errorf("expected Red with active incidents, got %s", s.Level)
	}
}

func TestSummaryEmpty(t *testing.T) {
	m := New(&fakeSource{}, nil, Config{})

	s, err := m.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalActive != 0 {
		t.Errorf("expected 0 active, got %d", s.TotalActive)
	}
	if s.MostSevere != nil {
		t.Errorf("expected nil most severe, got %v", *s.MostSevere)
	}
	if s.Level != alert.Green {
		t.Errorf("expected Green with no incidents, got %s", s.Level)
	}
}

func TestSummaryCached(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "payments", tracker.SeverityLow, time.Minute),
	}}
	c, err := cache.New(nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	m := New(src, c, Config{})
	ctx := context.Background()

	if _, err := m.Summary(ctx); err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if _, err := m.Summary(ctx); err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 source fetch with warm cache, got %d", src.calls)
	}
}

func TestSummarySourceError(t *testing.T) {
	m := New(&fakeSource{err: errors.New("monitor down")}, nil, Config{})
	if _, err := m.Summary(context.Background()); err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestServiceAllowList(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "payments", tracker.SeverityHigh, time.Minute),
		incident("2", "other", tracker.SeverityCritical, time.Minute),
	}}
	m := New(src, nil, Config{Services: []string{"payments"}})

	s, err := m.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalActive != 1 {
		t.Errorf("expected 1 active after allow-list, got %d", s.TotalActive)
	}
	if s.CriticalCount != 0 {
		t.Errorf("expected excluded service's critical dropped, got %d", s.CriticalCount)
	}
}

func TestFilterMinSeverity(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "a", tracker.SeverityLow, time.Minute),
		incident("2", "b", tracker.SeverityHigh, time.Minute),
		incident("3", "c", tracker.SeverityCritical, time.Minute),
	}}
	m := New(src, nil, Config{})

	min := tracker.SeverityHigh
	got, err := m.Incidents(context.Background(), Filter{MinSeverity: &min})
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 at or above High, got %d", len(got))
	}
}

func TestFilterResolved(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "a", tracker.SeverityLow, time.Minute),
		resolved("2", "a", tracker.SeverityLow),
	}}
	m := New(src, nil, Config{})
	ctx := context.Background()

	got, err := m.Incidents(ctx, Filter{})
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected resolved excluded by default, got %d", len(got))
	}

	got, err = m.Incidents(ctx, Filter{IncludeResolved: true})
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 with resolved included, got %d", len(got))
	}
}

func TestFilterServices(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "payments", tracker.SeverityLow, time.Minute),
		incident("2", "search", tracker.SeverityLow, time.Minute),
	}}
	m := New(src, nil, Config{})

	got, err := m.Incidents(context.Background(), Filter{Services: []string{"search"}})
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if len(got) != 1 || got[0].Service != "search" {
		t.Errorf("expected only search incidents, got %v", got)
	}
}

func TestAlertable(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "a", tracker.SeverityMedium, time.Minute),
		incident("2", "b", tracker.SeverityHigh, time.Minute),
	}}
	m := New(src, nil, Config{AlertSeverity: tracker.SeverityHigh})

	got, err := m.Alertable(context.Background())
	if err != nil {
		t.Fatalf("alertable: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("expected only the High incident, got %v", got)
	}
}

func TestHasCritical(t *testing.T) {
	src := &fakeSource{incidents: []tracker.Incident{
		incident("1", "a", tracker.SeverityHigh, time.Minute),
	}}
	m := New(src, nil, Config{})
	ctx := context.Background()

	has, err := m.HasCritical(ctx)
	if err != nil {
		t.Fatalf("hasCritical: %v", err)
	}
	if has {
		t.Error("expected no critical")
	}

	src.incidents = append(src.incidents, incident("2", "b", tracker.SeverityCritical, time.Minute))
	has, err = m.HasCritical(ctx)
	if err != nil {
		t.Fatalf("hasCritical: %v", err)
	}
	if !has {
		t.Error("expected critical detected")
	}
}
