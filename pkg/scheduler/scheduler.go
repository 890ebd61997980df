package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

const (
	// MinInterval is the smallest accepted refresh interval.
	MinInterval = time.Minute

	// StaleCeiling is the data age past which a refresh happens even while
	// the user is idle.
	StaleCeiling = 2 * time.Hour

	// DefaultIdleThreshold is how long without user activity counts as idle.
	DefaultIdleThreshold = 5 * time.Minute

	// sleepChunk bounds each backstop sleep so a machine suspend is noticed
	// within one chunk.
	sleepChunk = 30 * time.Second

	// backstopSlack is how far past the scheduled time the backstop waits
	// before concluding the primary loop missed the tick. Keeps the two
	// loops from double-firing on the same deadline.
	backstopSlack = 5 * time.Second

	// overdueThreshold is how far past the scheduled time the watchdog
	// tolerates before declaring the loops dead.
	overdueThreshold = 45 * time.Second

	// watchdogSpec is the cron schedule for the health check.
	watchdogSpec = "@every 1m"
)

// ErrInvalidInterval is returned for intervals below MinInterval.
var ErrInvalidInterval = errors.New("refresh interval must be at least one minute")

// Target is what the scheduler drives: the refresh itself plus the age of
// the data it maintains.
type Target interface {
	// Refresh runs one refresh cycle for the active profile.
	Refresh(ctx context.Context) error

	// DataAge returns how old the current data is, or false when there is
	// no data at all.
	DataAge() (time.Duration, bool)
}

// ActivityReporter reports user idleness for refresh suppression. A nil
// reporter means the user is never idle.
type ActivityReporter interface {
	IdleFor() time.Duration
}

// Config wires a Scheduler.
type Config struct {
	// Target is required.
	Target Target

	// Interval between refreshes. Must be at least MinInterval.
	Interval time.Duration

	// Activity enables idle suppression when set.
	Activity ActivityReporter

	// IdleThreshold overrides DefaultIdleThreshold.
	IdleThreshold time.Duration

	// Clock defaults to the system clock.
	Clock costs.Clock
}

// Scheduler runs the redundant refresh loops.
type Scheduler struct {
	target        Target
	activity      ActivityReporter
	idleThreshold time.Duration
	clock         costs.Clock
	logger        *slog.Logger

	mu          sync.Mutex
	interval    time.Duration
	gen         uint64
	running     bool
	nextRefresh time.Time
	lastFire    time.Time
	cancel      context.CancelFunc
	baseCtx     context.Context
	watchdog    *cron.Cron
	wg          sync.WaitGroup
}

// New builds a Scheduler. Start validates the interval.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = costs.SystemClock{}
	}
	idle := cfg.IdleThreshold
	if idle <= 0 {
		idle = DefaultIdleThreshold
	}
	return &Scheduler{
		target:        cfg.Target,
		activity:      cfg.Activity,
		idleThreshold: idle,
		clock:         clock,
		interval:      cfg.Interval,
		logger:        slog.Default().With("component", "scheduler"),
	}
}

// Start launches the loops and the watchdog. It returns ErrInvalidInterval
// for intervals below MinInterval and is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval < MinInterval {
		return ErrInvalidInterval
	}
	if s.running {
		return nil
	}
	s.baseCtx = ctx
	s.running = true
	s.startLoopsLocked()

	s.watchdog = cron.New()
	if _, err := s.watchdog.AddFunc(watchdogSpec, s.checkHealth); err != nil {
		// watchdogSpec is a constant, so this cannot fail at runtime.
		s.logger.Error("failed to schedule watchdog", "error", err)
	} else {
		s.watchdog.Start()
	}
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop cancels the loops and the watchdog and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	watchdog := s.watchdog
	s.watchdog = nil
	s.nextRefresh = time.Time{}
	s.mu.Unlock()

	if watchdog != nil {
		<-watchdog.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// SetInterval changes the refresh cadence. When running, the loops are torn
// down and relaunched so exactly one timing cycle exists for the new
// interval.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.interval {
		return nil
	}
	s.interval = d
	if s.running {
		s.restartLoopsLocked("interval changed")
	}
	return nil
}

// Restart tears down and relaunches the loops under a fresh generation, for
// callers that changed what a refresh targets (e.g., the active profile).
// No-op when stopped.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.restartLoopsLocked("target changed")
}

// Interval returns the current refresh cadence.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// NextRefresh returns when the next refresh is scheduled. Zero when the
// scheduler is stopped.
func (s *Scheduler) NextRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRefresh
}

// NeedsImmediateRefresh reports whether data is due right now: nothing is
// scheduled, the schedule has slipped into the past, or the data itself is
// older than the interval (or missing entirely).
func (s *Scheduler) NeedsImmediateRefresh() bool {
	s.mu.Lock()
	next := s.nextRefresh
	interval := s.interval
	s.mu.Unlock()

	now := s.clock.Now()
	if next.IsZero() || !now.Before(next) {
		return true
	}
	age, ok := s.target.DataAge()
	if !ok {
		return true
	}
	return age >= interval
}

// startLoopsLocked launches a fresh loop pair under a new generation.
// Callers hold s.mu.
func (s *Scheduler) startLoopsLocked() {
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	s.nextRefresh = s.clock.Now().Add(s.interval)

	s.wg.Add(2)
	go s.intervalLoop(ctx, gen, s.interval)
	go s.backstopLoop(ctx, gen)
}

// restartLoopsLocked cancels the current loop pair and launches a new one.
// Callers hold s.mu.
func (s *Scheduler) restartLoopsLocked(reason string) {
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("restarting refresh loops", "reason", reason, "interval", s.interval)
	s.startLoopsLocked()
}

// intervalLoop is the primary timer: one full interval per tick.
func (s *Scheduler) intervalLoop(ctx context.Context, gen uint64, interval time.Duration) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}
		if !s.fire(ctx, gen, "interval") {
			return
		}
	}
}

// backstopLoop wakes every sleepChunk and fires only when the primary loop
// has missed its deadline by more than backstopSlack. The short sleeps also
// bound how long a machine suspend goes unnoticed.
func (s *Scheduler) backstopLoop(ctx context.Context, gen uint64) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(sleepChunk):
		}

		s.mu.Lock()
		missed := gen == s.gen && !s.nextRefresh.IsZero() &&
			s.clock.Now().Sub(s.nextRefresh) >= backstopSlack
		s.mu.Unlock()
		if !missed {
			continue
		}
		s.logger.Warn("primary refresh loop missed its deadline, backstop firing")
		if !s.fire(ctx, gen, "backstop") {
			return
		}
	}
}

// fire runs one refresh cycle. It returns false when this loop's generation
// has been superseded and the loop should exit.
func (s *Scheduler) fire(ctx context.Context, gen uint64, source string) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	now := s.clock.Now()
	s.lastFire = now
	s.nextRefresh = now.Add(s.interval)
	s.mu.Unlock()

	if s.suppressForIdle() {
		s.logger.Debug("refresh suppressed, user idle", "source", source)
		return true
	}
	if err := s.target.Refresh(ctx); err != nil {
		s.logger.Warn("scheduled refresh failed", "source", source, "error", err)
	}
	return true
}

// suppressForIdle reports whether this tick should be skipped. Data at or
// past StaleCeiling is always refreshed.
func (s *Scheduler) suppressForIdle() bool {
	if s.activity == nil {
		return false
	}
	if s.activity.IdleFor() < s.idleThreshold {
		return false
	}
	if age, ok := s.target.DataAge(); !ok || age >= StaleCeiling {
		return false
	}
	return true
}

// checkHealth is the watchdog: a refresh overdue by more than
// overdueThreshold means both loops are wedged, so rebuild them.
func (s *Scheduler) checkHealth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.nextRefresh.IsZero() {
		return
	}
	overdue := s.clock.Now().Sub(s.nextRefresh)
	if overdue <= overdueThreshold {
		return
	}
	s.logger.Warn("scheduled refresh overdue, rebuilding loops", "overdue", overdue)
	s.restartLoopsLocked("watchdog")
}
