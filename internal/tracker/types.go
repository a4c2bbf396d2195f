// Package tracker defines the domain model shared by the aggregators and the
// narrow repository interfaces that external tracker clients implement.
package tracker

import (
	"context"
	"time"
)

// User identifies a person on an external tracker.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Reviewer is a user assigned to review a pull request.
type Reviewer struct {
	User     User `json:"user"`
	Approved bool `json:"approved"`
}

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PROpen     PRState = "open"
	PRMerged   PRState = "merged"
	PRDeclined PRState = "declined"
	PRDraft    PRState = "draft"
)

// ChecksStatus is the aggregate CI status of a pull request.
type ChecksStatus string

const (
	ChecksPass    ChecksStatus = "pass"
	ChecksFail    ChecksStatus = "fail"
	ChecksRunning ChecksStatus = "running"
	ChecksNone    ChecksStatus = "none"
)

// PullRequest is a pull request as reported by a git-hosting source.
type PullRequest struct {
	ID           string       `json:"id"`
	Repository   string       `json:"repository"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	State        PRState      `json:"state"`
	Author       User         `json:"author"`
	Reviewers    []Reviewer   `json:"reviewers,omitempty"`
	SourceBranch string       `json:"source_branch"`
	TargetBranch string       `json:"target_branch"`
	ChecksStatus ChecksStatus `json:"checks_status"`
	URL          string       `json:"url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PRFilter narrows pull request listings.
type PRFilter struct {
	Repositories []string
	StaleOnly    bool
	Limit        int
}

// Severity orders incidents from least to most severe.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentFiring   IncidentStatus = "firing"
	IncidentResolved IncidentStatus = "resolved"
)

// Incident is an incident as reported by a monitoring source.
type Incident struct {
	ID          string         `json:"id"`
	Service     string         `json:"service"`
	Severity    Severity       `json:"severity"`
	Status      IncidentStatus `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Description string         `json:"description"`
	RunbookURL  string         `json:"runbook_url,omitempty"`
}

// Active reports whether the incident is still firing.
func (i Incident) Active() bool {
	return i.Status == IncidentFiring
}

// TicketStatus is the workflow status of a ticket.
type TicketStatus struct {
	Name     string `json:"name"`
	Category string `json:"category"` // todo, in_progress, done
}

// Ticket is an issue as reported by a ticket-tracking source.
type Ticket struct {
	ID        string       `json:"id"`
	Key       string       `json:"key"`
	Summary   string       `json:"summary"`
	Status    TicketStatus `json:"status"`
	Assignee  *User        `json:"assignee,omitempty"`
	Priority  string       `json:"priority,omitempty"`
	Labels    []string     `json:"labels,omitempty"`
	URL       string       `json:"url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TicketQuery narrows ticket searches.
type TicketQuery struct {
	Text     string
	Project  string
	Assignee string
	Status   string
	Limit    int
}

// PullRequestSource supplies pull requests from a git-hosting tracker.
type PullRequestSource interface {
	FindByID(ctx context.Context, repo, id string) (PullRequest, error)
	FindByReviewer(ctx context.Context, userID string, filter PRFilter) ([]PullRequest, error)
	ListOpen(ctx context.Context, filter PRFilter) ([]PullRequest, error)
}

// IncidentSource supplies incidents from a monitoring tracker.
type IncidentSource interface {
	ListActiveIncidents(ctx context.Context) ([]Incident, error)
}

// TicketSource supplies tickets from an issue tracker.
type TicketSource interface {
	FindByID(ctx context.Context, id string) (Ticket, error)
	Search(ctx context.Context, query TicketQuery) ([]Ticket, error)
}
