package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeTarget struct {
	mu        sync.Mutex
	calls     int
	age       time.Duration
	hasData   bool
	refreshed chan struct{}
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{refreshed: make(chan struct{}, 16), hasData: true}
}

func (f *fakeTarget) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case f.refreshed <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeTarget) DataAge() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.age, f.hasData
}

func (f *fakeTarget) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeActivity struct {
	idle time.Duration
}

func (f fakeActivity) IdleFor() time.Duration { return f.idle }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testStart = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

// autoAdvance drives the manual clock forward in the background so loop
// goroutines make progress regardless of when they register their waiters.
func autoAdvance(clock *costs.ManualClock, step time.Duration) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				clock.Advance(step)
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// stepClock advances the clock by total in small steps, yielding between
// steps so waiters fire in order.
func stepClock(clock *costs.ManualClock, total, step time.Duration) {
	for advanced := time.Duration(0); advanced < total; advanced += step {
		clock.Advance(step)
		time.Sleep(time.Millisecond)
	}
}

func waitRefresh(t *testing.T, target *fakeTarget) {
	t.Helper()
	select {
	case <-target.refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a refresh")
	}
}

// ---------------------------------------------------------------------------
// Interval validation
// ---------------------------------------------------------------------------

func TestScheduler_RejectsShortInterval(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	s := New(Config{Target: newFakeTarget(), Interval: 30 * time.Second, Clock: clock})
	if err := s.Start(context.Background()); err != ErrInvalidInterval {
		t.Fatalf("Start = %v, want ErrInvalidInterval", err)
	}
	if err := s.SetInterval(59 * time.Second); err != ErrInvalidInterval {
		t.Fatalf("SetInterval = %v, want ErrInvalidInterval", err)
	}
	if err := s.SetInterval(time.Minute); err != nil {
		t.Fatalf("SetInterval(1m) = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Periodic firing
// ---------------------------------------------------------------------------

func TestScheduler_FiresEveryInterval(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	stop := autoAdvance(clock, 5*time.Second)
	defer stop()

	waitRefresh(t, target)
	waitRefresh(t, target)
}

func TestScheduler_StopHaltsFiring(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()

	if !s.NextRefresh().IsZero() {
		t.Fatal("NextRefresh non-zero after Stop")
	}
	stepClock(clock, 3*time.Minute, 10*time.Second)
	if n := target.callCount(); n != 0 {
		t.Fatalf("refresh ran %d times after Stop, want 0", n)
	}
}

// ---------------------------------------------------------------------------
// Idle suppression
// ---------------------------------------------------------------------------

func TestScheduler_SuppressesWhileIdle(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	target.age = 30 * time.Minute
	s := New(Config{
		Target:   target,
		Interval: time.Minute,
		Activity: fakeActivity{idle: 10 * time.Minute},
		Clock:    clock,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	stepClock(clock, 3*time.Minute, 5*time.Second)
	if n := target.callCount(); n != 0 {
		t.Fatalf("refresh ran %d times while idle, want 0", n)
	}
	// Suppressed ticks still keep the schedule current.
	if clock.Now().Sub(s.NextRefresh()) > time.Minute {
		t.Fatal("schedule fell behind during suppression")
	}
}

func TestScheduler_StaleCeilingBeatsIdle(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	target.age = 3 * time.Hour
	s := New(Config{
		Target:   target,
		Interval: time.Minute,
		Activity: fakeActivity{idle: 10 * time.Minute},
		Clock:    clock,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	stop := autoAdvance(clock, 5*time.Second)
	defer stop()
	waitRefresh(t, target)
}

// ---------------------------------------------------------------------------
// Interval changes
// ---------------------------------------------------------------------------

func TestScheduler_SetIntervalSingleCycle(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.SetInterval(2 * time.Minute); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	want := clock.Now().Add(2 * time.Minute)
	if got := s.NextRefresh(); !got.Equal(want) {
		t.Fatalf("NextRefresh = %v, want %v", got, want)
	}

	// Exactly one cycle fires for the new interval: the old generation's
	// timers are dead, and the backstop holds off inside its slack.
	stepClock(clock, 2*time.Minute, 5*time.Second)
	waitRefresh(t, target)
	time.Sleep(50 * time.Millisecond)
	if n := target.callCount(); n != 1 {
		t.Fatalf("refresh ran %d times over one new-interval cycle, want 1", n)
	}
}

func TestScheduler_RestartResetsSchedule(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	clock.Advance(30 * time.Second)
	s.Restart()
	want := clock.Now().Add(time.Minute)
	if got := s.NextRefresh(); !got.Equal(want) {
		t.Fatalf("NextRefresh = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// Watchdog
// ---------------------------------------------------------------------------

func TestScheduler_WatchdogRebuildsOverdueLoops(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	// Simulate both loops wedged: the scheduled time slides a minute into
	// the past with nothing firing.
	s.mu.Lock()
	s.nextRefresh = clock.Now().Add(-time.Minute)
	gen := s.gen
	s.mu.Unlock()

	s.checkHealth()

	s.mu.Lock()
	rebuilt := s.gen > gen
	next := s.nextRefresh
	s.mu.Unlock()
	if !rebuilt {
		t.Fatal("watchdog did not rebuild the loops")
	}
	if !next.Equal(clock.Now().Add(time.Minute)) {
		t.Fatalf("NextRefresh = %v, want one interval out", next)
	}
}

func TestScheduler_WatchdogToleratesSmallSlips(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: time.Minute, Clock: clock})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	s.mu.Lock()
	s.nextRefresh = clock.Now().Add(-30 * time.Second)
	gen := s.gen
	s.mu.Unlock()

	s.checkHealth()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		t.Fatal("watchdog restarted loops for a slip inside the threshold")
	}
}

// ---------------------------------------------------------------------------
// Immediate-refresh checks
// ---------------------------------------------------------------------------

func TestScheduler_NeedsImmediateRefresh(t *testing.T) {
	clock := costs.NewManualClock(testStart)
	target := newFakeTarget()
	s := New(Config{Target: target, Interval: 5 * time.Minute, Clock: clock})

	// Nothing scheduled yet.
	if !s.NeedsImmediateRefresh() {
		t.Fatal("want immediate refresh before Start")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	target.mu.Lock()
	target.age = 0
	target.mu.Unlock()
	if s.NeedsImmediateRefresh() {
		t.Fatal("fresh data flagged as needing refresh")
	}

	// Data older than the interval is due even though the schedule is fine.
	target.mu.Lock()
	target.age = 10 * time.Minute
	target.mu.Unlock()
	if !s.NeedsImmediateRefresh() {
		t.Fatal("stale data not flagged")
	}

	// Missing data is always due.
	target.mu.Lock()
	target.age = 0
	target.hasData = false
	target.mu.Unlock()
	if !s.NeedsImmediateRefresh() {
		t.Fatal("missing data not flagged")
	}
}
