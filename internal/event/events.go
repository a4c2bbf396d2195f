// Package event provides the in-process pub/sub bus that decouples the
// poller and aggregators from whatever is listening (status display,
// diagnostics).
package event

import (
	"time"

	"github.com/cakahlul/em-cockpit/internal/alert"
)

// Kind names an event variant for logging and filtering.
type Kind string

const (
	KindAlertChanged     Kind = "AlertChanged"
	KindPRDataUpdated    Kind = "PRDataUpdated"
	KindIncidentsUpdated Kind = "IncidentsUpdated"
	KindSearchCompleted  Kind = "SearchCompleted"
	KindCacheInvalidated Kind = "CacheInvalidated"
	KindSettingsChanged  Kind = "SettingsChanged"
	KindErrorOccurred    Kind = "ErrorOccurred"
	KindPollTick         Kind = "PollTick"
)

// Event is the tagged union of everything that can be published. Events are
// immutable once published; subscribers must not retain mutable references.
type Event interface {
	Kind() Kind
}

// AlertChanged reports an alert level transition.
type AlertChanged struct {
	Transition alert.Transition
}

func (AlertChanged) Kind() Kind { return KindAlertChanged }

// PRDataUpdated reports a refreshed pull request summary.
type PRDataUpdated struct {
	TotalOpen     int
	StaleCount    int
	PendingReview int
}

func (PRDataUpdated) Kind() Kind { return KindPRDataUpdated }

// IncidentsUpdated reports a refreshed incident summary.
type IncidentsUpdated struct {
	ActiveCount   int
	CriticalCount int
	NewIncidents  []string
}

func (IncidentsUpdated) Kind() Kind { return KindIncidentsUpdated }

// SearchCompleted reports a finished search query.
type SearchCompleted struct {
	Query       string
	ResultCount int
	Duration    time.Duration
}

func (SearchCompleted) Kind() Kind { return KindSearchCompleted }

// CacheInvalidated reports removed cache keys.
type CacheInvalidated struct {
	Keys []string
}

func (CacheInvalidated) Kind() Kind { return KindCacheInvalidated }

// SettingsChanged reports a modified configuration section.
type SettingsChanged struct {
	Section string
}

func (SettingsChanged) Kind() Kind { return KindSettingsChanged }

// ErrorOccurred reports a recoverable failure somewhere in the pipeline.
type ErrorOccurred struct {
	Source      string
	Message     string
	Recoverable bool
}

func (ErrorOccurred) Kind() Kind { return KindErrorOccurred }

// PollTick reports one completed poll cycle for a domain.
type PollTick struct {
	TickID    string
	Domain    string
	Timestamp time.Time
	Success   bool
}

func (PollTick) Kind() Kind { return KindPollTick }
