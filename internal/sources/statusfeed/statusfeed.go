// Package statusfeed adapts a public RSS/Atom status feed into an incident
// source. Many hosted status pages expose such a feed, which makes this a
// vendor-neutral way to watch a service without API credentials.
package statusfeed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/cakahlul/em-cockpit/internal/tracker"
)

// Feed is one monitored status feed.
type Feed struct {
	Service string
	URL     string
}

// Source polls status feeds and reports their entries as incidents.
type Source struct {
	feeds  []Feed
	parser *gofeed.Parser
	// maxAge drops entries older than this; resolved entries scroll out of
	// most status feeds far sooner.
	maxAge time.Duration
}

// New creates a source over the given feeds.
func New(feeds []Feed) *Source {
	return &Source{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		maxAge: 7 * 24 * time.Hour,
	}
}

// ListActiveIncidents fetches every configured feed and maps its entries to
// incidents. A feed that fails to fetch fails the whole listing; the poller
// treats that as one failed tick.
func (s *Source) ListActiveIncidents(ctx context.Context) ([]tracker.Incident, error) {
	var incidents []tracker.Incident
	now := time.Now()

	for _, f := range s.feeds {
		feed, err := s.parser.ParseURLWithContext(f.URL, ctx)
		if err != nil {
			return nil, tracker.NewError(tracker.KindNetwork, fmt.Sprintf("fetching %s", f.Service), err)
		}

		for _, item := range feed.Items {
			started := now
			if item.PublishedParsed != nil {
				started = *item.PublishedParsed
			} else if item.UpdatedParsed != nil {
				started = *item.UpdatedParsed
			}
			if now.Sub(started) > s.maxAge {
				continue
			}

			in := tracker.Incident{
				ID:          entryID(f.Service, item.Link, item.Title),
				Service:     f.Service,
				Severity:    inferSeverity(item),
				Status:      inferStatus(item),
				StartedAt:   started,
				Description: item.Title,
				RunbookURL:  item.Link,
			}
			if in.Status == tracker.IncidentResolved {
				resolved := started
				if item.UpdatedParsed != nil {
					resolved = *item.UpdatedParsed
				}
				in.ResolvedAt = &resolved
			}
			incidents = append(incidents, in)
		}
	}
	return incidents, nil
}

func entryID(service, link, title string) string {
	h := sha256.Sum256([]byte(service + "|" + link + "|" + title))
	return fmt.Sprintf("%x", h[:16])
}

// inferSeverity maps feed categories and title keywords onto the severity
// scale. Status pages rarely agree on wording, so this stays keyword-based.
func inferSeverity(item *gofeed.Item) tracker.Severity {
	text := strings.ToLower(item.Title)
	for _, c := range item.Categories {
		text += " " + strings.ToLower(c)
	}

	switch {
	case strings.Contains(text, "critical") || strings.Contains(text, "outage"):
		return tracker.SeverityCritical
	case strings.Contains(text, "major"):
		return tracker.SeverityHigh
	case strings.Contains(text, "degraded") || strings.Contains(text, "partial"):
		return tracker.SeverityMedium
	default:
		return tracker.SeverityLow
	}
}

func inferStatus(item *gofeed.Item) tracker.IncidentStatus {
	text := strings.ToLower(item.Title + " " + item.Description)
	if strings.Contains(text, "resolved") || strings.Contains(text, "completed") {
		return tracker.IncidentResolved
	}
	return tracker.IncidentFiring
}
