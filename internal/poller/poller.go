// Package poller runs the background refresh loops. Each polling domain
// ticks on its own interval in its own goroutine; results and alert level
// transitions are published on the event bus.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/cache"
	"github.com/cakahlul/em-cockpit/internal/event"
	"github.com/cakahlul/em-cockpit/internal/incidents"
	"github.com/cakahlul/em-cockpit/internal/prs"
)

// Domain names one polling loop.
type Domain string

const (
	DomainPR       Domain = "pr"
	DomainIncident Domain = "incident"
)

// Config holds the polling schedule.
type Config struct {
	PRInterval       time.Duration
	IncidentInterval time.Duration
	PREnabled        bool
	IncidentEnabled  bool
	// CleanupInterval schedules the durable-tier TTL sweep. Zero disables
	// it.
	CleanupInterval time.Duration
}

// DefaultConfig returns the standard schedule: PRs every 2 minutes,
// incidents every 30 seconds, cache sweep hourly.
func DefaultConfig() Config {
	return Config{
		PRInterval:       2 * time.Minute,
		IncidentInterval: 30 * time.Second,
		PREnabled:        true,
		IncidentEnabled:  true,
		CleanupInterval:  time.Hour,
	}
}

// DomainState tracks one domain's polling counters.
type DomainState struct {
	LastPoll            time.Time
	PollCount           int
	ConsecutiveFailures int
}

// State is a snapshot of the poller's counters and current alert level.
type State struct {
	Domains map[Domain]DomainState
	Level   alert.Level
}

// Poller orchestrates the per-domain refresh loops.
type Poller struct {
	cfg       Config
	bus       *event.Bus
	prAgg     *prs.Aggregator
	incidents *incidents.Monitor
	cache     *cache.Cache // nil disables the cleanup loop

	// prGate and incGate keep a domain's ticks from overlapping; a manual
	// refresh contends with the scheduled loop on the same gate.
	prGate  sync.Mutex
	incGate sync.Mutex

	mu      sync.Mutex
	domains map[Domain]DomainState
	level   alert.Level
	lastPR  *prs.Summary
	lastInc *incidents.Summary
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a poller. cache may be nil to skip the TTL sweep loop.
func New(cfg Config, bus *event.Bus, prAgg *prs.Aggregator, inc *incidents.Monitor, c *cache.Cache) *Poller {
	return &Poller{
		cfg:       cfg,
		bus:       bus,
		prAgg:     prAgg,
		incidents: inc,
		cache:     c,
		domains: map[Domain]DomainState{
			DomainPR:       {},
			DomainIncident: {},
		},
	}
}

// Start launches the polling loops. It returns an error if the poller is
// already running. Stopping cancels future ticks; an in-flight tick runs to
// completion.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.mu.Unlock()

	log.Printf("poller: starting (pr=%s incident=%s)", p.cfg.PRInterval, p.cfg.IncidentInterval)

	if p.cfg.PREnabled {
		p.spawnLoop(ctx, p.cfg.PRInterval, func() { p.PollPRs(ctx) })
	}
	if p.cfg.IncidentEnabled {
		p.spawnLoop(ctx, p.cfg.IncidentInterval, func() { p.PollIncidents(ctx) })
	}
	if p.cache != nil && p.cfg.CleanupInterval > 0 {
		p.spawnLoop(ctx, p.cfg.CleanupInterval, func() { p.sweepCache(ctx) })
	}
	return nil
}

func (p *Poller) spawnLoop(ctx context.Context, interval time.Duration, tick func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				tick()
			}
		}
	}()
}

// Stop cancels the loops and waits for in-flight ticks to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	log.Printf("poller: stopped")
}

// Running reports whether the loops are active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// State returns a snapshot of the polling counters.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := State{Domains: make(map[Domain]DomainState, len(p.domains)), Level: p.level}
	for d, s := range p.domains {
		out.Domains[d] = s
	}
	return out
}

// RefreshAll polls every enabled domain immediately, bypassing the schedule
// but not the cache TTLs.
func (p *Poller) RefreshAll(ctx context.Context) {
	log.Printf("poller: manual refresh")
	if p.cfg.PREnabled {
		p.PollPRs(ctx)
	}
	if p.cfg.IncidentEnabled {
		p.PollIncidents(ctx)
	}
}

// PollPRs executes one PR poll cycle.
func (p *Poller) PollPRs(ctx context.Context) error {
	p.prGate.Lock()
	defer p.prGate.Unlock()

	summary, err := p.prAgg.Summary(ctx)

	p.mu.Lock()
	p.record(DomainPR, err == nil)
	if err == nil {
		p.lastPR = &summary
	}
	p.mu.Unlock()

	if err != nil {
		p.reportFailure(DomainPR, err)
		return err
	}

	p.bus.Publish(event.PRDataUpdated{
		TotalOpen:     summary.TotalOpen,
		StaleCount:    summary.StaleCount,
		PendingReview: summary.PendingReview,
	})
	p.publishTick(DomainPR, true)
	p.updateAlert()
	return nil
}

// PollIncidents executes one incident poll cycle.
func (p *Poller) PollIncidents(ctx context.Context) error {
	p.incGate.Lock()
	defer p.incGate.Unlock()

	summary, err := p.incidents.Summary(ctx)

	p.mu.Lock()
	p.record(DomainIncident, err == nil)
	if err == nil {
		p.lastInc = &summary
	}
	p.mu.Unlock()

	if err != nil {
		p.reportFailure(DomainIncident, err)
		return err
	}

	p.bus.Publish(event.IncidentsUpdated{
		ActiveCount:   summary.TotalActive,
		CriticalCount: summary.CriticalCount,
	})
	p.publishTick(DomainIncident, true)
	p.updateAlert()
	return nil
}

// record must be called with p.mu held.
func (p *Poller) record(d Domain, success bool) {
	s := p.domains[d]
	s.LastPoll = time.Now()
	s.PollCount++
	if success {
		s.ConsecutiveFailures = 0
	} else {
		s.ConsecutiveFailures++
	}
	p.domains[d] = s
}

// reportFailure publishes the failure; the failed tick is not retried
// inline, the next scheduled tick is the retry.
func (p *Poller) reportFailure(d Domain, err error) {
	log.Printf("poller: %s poll failed: %v", d, err)
	p.bus.Publish(event.ErrorOccurred{
		Source:      string(d),
		Message:     err.Error(),
		Recoverable: true,
	})
	p.publishTick(d, false)
}

func (p *Poller) publishTick(d Domain, success bool) {
	p.bus.Publish(event.PollTick{
		TickID:    uuid.NewString(),
		Domain:    string(d),
		Timestamp: time.Now(),
		Success:   success,
	})
}

// updateAlert recomputes the combined alert level from the last known
// summaries and publishes a transition when it changes.
func (p *Poller) updateAlert() {
	p.mu.Lock()

	var activeIncidents, staleCount, pendingCount int
	level := alert.Neutral
	if p.lastPR != nil {
		staleCount = p.lastPR.StaleCount
		pendingCount = p.lastPR.PendingReview
		level = alert.Combine(level, p.lastPR.Level)
	}
	if p.lastInc != nil {
		activeIncidents = p.lastInc.TotalActive
		level = alert.Combine(level, p.lastInc.Level)
	}

	if level == p.level {
		p.mu.Unlock()
		return
	}
	from := p.level
	p.level = level
	p.mu.Unlock()

	t := alert.Transition{
		From: from,
		To:   level,
		Reason: fmt.Sprintf("active incidents: %d, stale: %d, pending: %d",
			activeIncidents, staleCount, pendingCount),
	}
	log.Printf("poller: alert %s -> %s (%s)", t.From, t.To, t.Reason)
	p.bus.Publish(event.AlertChanged{Transition: t})
}

func (p *Poller) sweepCache(ctx context.Context) {
	n, err := p.cache.CleanupExpired(ctx)
	if err != nil {
		log.Printf("poller: cache sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("poller: cache sweep removed %d entries", n)
	}
}
