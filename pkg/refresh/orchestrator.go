package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/anomaly"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/cache"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/cache/team"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/limits"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/storage"
)

// endpointCostAndUsage labels live fetches in the audit log.
const endpointCostAndUsage = "GetCostAndUsage"

// Options controls a single refresh.
type Options struct {
	// Force bypasses every cache tier, the rate limiter, and the open
	// circuit breaker, going straight to the live fetch.
	Force bool

	// BypassTeamCache skips the shared cache for both read and write-back.
	BypassTeamCache bool
}

// Fetcher retrieves month-to-date spend from the billing API.
type Fetcher interface {
	FetchMonthToDate(ctx context.Context, profile costs.Profile, r costs.DateRange) (costs.MonthToDate, error)
}

// AccountResolver maps a profile to its AWS account ID.
type AccountResolver interface {
	ResolveAccountID(ctx context.Context, profile costs.Profile) (string, error)
}

// PolicyProvider supplies the budget policy for a profile. Implementations
// must return a usable policy for any name (defaulting unknown profiles).
type PolicyProvider interface {
	PolicyFor(profileName string) costs.BudgetPolicy
}

// PolicyFunc adapts a function to PolicyProvider.
type PolicyFunc func(profileName string) costs.BudgetPolicy

func (f PolicyFunc) PolicyFor(profileName string) costs.BudgetPolicy { return f(profileName) }

// HistorySource supplies prior months' spend for anomaly baselines: the
// monthly totals plus the previous month's service breakdown.
type HistorySource interface {
	MonthlyHistory(ctx context.Context, profileName string) ([]costs.MonthlyTotal, []costs.ServiceCost, error)
}

// Observer receives refresh outcomes, for metrics.
type Observer interface {
	RefreshOutcome(profileName, outcome string, duration time.Duration)
	AnomaliesDetected(profileName string, count int)
}

// Refresh outcomes reported to the Observer.
const (
	OutcomeRemoteHit   = "remote_hit"
	OutcomeLocalHit    = "local_hit"
	OutcomeFetched     = "fetched"
	OutcomeRateLimited = "rate_limited"
	OutcomeBreakerOpen = "breaker_open"
	OutcomeFailed      = "failed"
	OutcomeNoData      = "no_data"
)

// Config wires an Orchestrator. Local, Fetcher, and Policies are required;
// everything else has a sensible zero-value behavior (Team nil disables the
// shared cache, Store nil disables persistence, Observer nil disables
// metrics).
type Config struct {
	Local    *cache.Store
	Team     *team.Client
	Limiter  *limits.RateLimiter
	Breaker  *limits.CircuitBreaker
	Fetcher  Fetcher
	Resolver AccountResolver
	Policies PolicyProvider
	Audit    *AuditLog
	History  HistorySource
	Store    storage.Store
	Anomaly  anomaly.Options
	Clock    costs.Clock
	Observer Observer
}

// Orchestrator owns the refresh decision chain. It is the single writer of
// the rate limiter's last-call time, the per-profile in-flight flags, and
// the selection generation; collaborators are called outside its mutex.
type Orchestrator struct {
	local    *cache.Store
	team     *team.Client
	limiter  *limits.RateLimiter
	breaker  *limits.CircuitBreaker
	fetcher  Fetcher
	resolver AccountResolver
	policies PolicyProvider
	audit    *AuditLog
	history  HistorySource
	store    storage.Store
	anomOpts anomaly.Options
	clock    costs.Clock
	observer Observer
	logger   *slog.Logger

	mu        sync.Mutex
	lastCall  time.Time
	inFlight  map[string]bool
	selected  string
	selGen    uint64
	anomalies map[string][]anomaly.Anomaly
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = costs.SystemClock{}
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = limits.NewRateLimiter(limits.DefaultMinCallSpacing)
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = limits.NewCircuitBreaker(limits.DefaultMaxConsecutiveFailures)
	}
	local := cfg.Local
	if local == nil {
		local = cache.NewStore(clock)
	}
	audit := cfg.Audit
	if audit == nil {
		audit = NewAuditLog(cfg.Store, clock)
	}
	policies := cfg.Policies
	if policies == nil {
		policies = PolicyFunc(costs.DefaultPolicy)
	}
	return &Orchestrator{
		local:     local,
		team:      cfg.Team,
		limiter:   limiter,
		breaker:   breaker,
		fetcher:   cfg.Fetcher,
		resolver:  cfg.Resolver,
		policies:  policies,
		audit:     audit,
		history:   cfg.History,
		store:     cfg.Store,
		anomOpts:  cfg.Anomaly,
		clock:     clock,
		observer:  cfg.Observer,
		logger:    slog.Default().With("component", "refresh"),
		inFlight:  make(map[string]bool),
		anomalies: make(map[string][]anomaly.Anomaly),
	}
}

// Select records profileName as the active profile. A refresh already in
// flight for a different profile will have its result discarded.
func (o *Orchestrator) Select(profileName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == profileName {
		return
	}
	o.selected = profileName
	o.selGen++
}

// Selected returns the active profile name.
func (o *Orchestrator) Selected() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// Snapshot returns the cached snapshot for profileName, valid or not.
func (o *Orchestrator) Snapshot(profileName string) (costs.CostSnapshot, bool) {
	return o.local.Get(profileName)
}

// Anomalies returns the findings from the profile's most recent refresh.
func (o *Orchestrator) Anomalies(profileName string) []anomaly.Anomaly {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.anomalies[profileName]
}

// LastSuccess returns when the profile's last successful live fetch started.
func (o *Orchestrator) LastSuccess(profileName string) (time.Time, bool) {
	return o.audit.LastSuccess(profileName)
}

// Audit exposes the request log.
func (o *Orchestrator) Audit() *AuditLog { return o.audit }

// BreakerState reports the circuit breaker state.
func (o *Orchestrator) BreakerState() limits.BreakerState { return o.breaker.State() }

// SecondsUntilAllowed reports how long until the next live fetch is
// permitted. Zero means a call is allowed now.
func (o *Orchestrator) SecondsUntilAllowed() int {
	o.mu.Lock()
	last := o.lastCall
	o.mu.Unlock()
	return o.limiter.SecondsUntilAllowed(last, o.clock.Now())
}

// RestoreCache populates the local cache from persisted snapshots. Entries
// already in the cache win.
func (o *Orchestrator) RestoreCache(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	entries, err := o.store.LoadSnapshots(ctx)
	if err != nil {
		return err
	}
	o.local.Restore(entries)
	return nil
}

// Refresh runs the full decision chain for profile. It returns nil when a
// cache tier satisfied the refresh or a live fetch landed, and a
// *RefreshError otherwise. A refresh already in flight for the same profile
// makes this call a silent no-op.
func (o *Orchestrator) Refresh(ctx context.Context, profile costs.Profile, opts Options) error {
	if profile.Name == "" {
		return &RefreshError{Kind: KindNoProfileSelected}
	}
	policy := o.policies.PolicyFor(profile.Name)
	policy.Normalize()

	o.mu.Lock()
	if o.inFlight[profile.Name] {
		o.mu.Unlock()
		o.logger.Debug("refresh already in flight, skipping", "profile", profile.Name)
		return nil
	}
	o.inFlight[profile.Name] = true
	gen := o.selGen
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inFlight, profile.Name)
		o.mu.Unlock()
	}()

	started := o.clock.Now()

	// Tier 1: team cache. Any failure here falls through to the next tier.
	if !opts.Force && !opts.BypassTeamCache && o.team != nil {
		if snap, ok := o.readTeamCache(ctx, profile, policy); ok {
			if o.adopt(ctx, gen, snap) {
				o.report(profile.Name, OutcomeRemoteHit, started)
			}
			return nil
		}
	}

	// Tier 2: local cache.
	if !opts.Force {
		if _, ok := o.local.GetValid(profile.Name, policy); ok {
			o.report(profile.Name, OutcomeLocalHit, started)
			return nil
		}
	}

	// Tier 3: circuit breaker.
	if !o.breaker.Allow(opts.Force) {
		o.report(profile.Name, OutcomeBreakerOpen, started)
		return &RefreshError{Kind: KindCircuitBreakerOpen, ProfileName: profile.Name}
	}

	// Tier 4: rate limiter. A stale local entry is quietly kept in place
	// rather than surfacing an error the caller can do nothing about.
	o.mu.Lock()
	last := o.lastCall
	o.mu.Unlock()
	now := o.clock.Now()
	if !opts.Force && !o.limiter.CanCall(last, now) {
		wait := o.limiter.SecondsUntilAllowed(last, now)
		o.report(profile.Name, OutcomeRateLimited, started)
		if _, ok := o.local.Get(profile.Name); ok {
			o.logger.Debug("rate limited, serving cached data",
				"profile", profile.Name, "wait_seconds", wait)
			return nil
		}
		return &RefreshError{Kind: KindRateLimited, ProfileName: profile.Name, WaitSeconds: wait}
	}

	// Tier 5: live fetch.
	o.mu.Lock()
	o.lastCall = now
	o.mu.Unlock()

	return o.fetchLive(ctx, gen, profile, opts, now)
}

// readTeamCache resolves the account and reads the current month's shared
// entry, re-validating it against the caller's own policy.
func (o *Orchestrator) readTeamCache(ctx context.Context, profile costs.Profile, policy costs.BudgetPolicy) (costs.CostSnapshot, bool) {
	accountID, err := o.resolveAccount(ctx, profile)
	if err != nil {
		return costs.CostSnapshot{}, false
	}
	res := o.team.ReadMonth(ctx, accountID, o.clock.Now())
	switch res.Status {
	case team.StatusSuccess:
		snap := res.Entry.Snapshot(profile.Name)
		if o.local.IsValid(snap, policy) {
			return snap, true
		}
		o.logger.Debug("team cache entry stale under local policy", "profile", profile.Name)
	case team.StatusError:
		o.logger.Warn("team cache read failed", "profile", profile.Name, "error", res.Err)
	}
	return costs.CostSnapshot{}, false
}

func (o *Orchestrator) resolveAccount(ctx context.Context, profile costs.Profile) (string, error) {
	if o.resolver == nil {
		return "", errors.New("no account resolver configured")
	}
	accountID, err := o.resolver.ResolveAccountID(ctx, profile)
	if err != nil {
		o.logger.Warn("account resolution failed, team cache disabled for this call",
			"profile", profile.Name, "error", err)
		return "", err
	}
	return accountID, nil
}

func (o *Orchestrator) fetchLive(ctx context.Context, gen uint64, profile costs.Profile, opts Options, now time.Time) error {
	r := fetchRange(now)
	mtd, err := o.fetcher.FetchMonthToDate(ctx, profile, r)
	duration := o.clock.Now().Sub(now)

	rec := costs.APIRequestRecord{
		ID:          uuid.NewString(),
		Timestamp:   now,
		ProfileName: profile.Name,
		Endpoint:    endpointCostAndUsage,
		Duration:    duration,
	}

	if err != nil {
		rec.ErrorText = err.Error()
		o.audit.Record(ctx, rec)
		if o.breaker.RecordFailure() {
			o.logger.Warn("circuit breaker tripped", "profile", profile.Name)
		}
		o.report(profile.Name, OutcomeFailed, now)
		o.logger.Error("cost fetch failed", "profile", profile.Name, "error", err)
		return &RefreshError{Kind: KindUpstreamFailure, ProfileName: profile.Name, Cause: err}
	}

	rec.Success = true
	o.audit.Record(ctx, rec)
	o.breaker.RecordSuccess()

	if len(mtd.Services) == 0 && len(mtd.Daily) == 0 {
		o.report(profile.Name, OutcomeNoData, now)
		return &RefreshError{Kind: KindNoDataReturned, ProfileName: profile.Name}
	}

	snap := costs.CostSnapshot{
		ProfileName:  profile.Name,
		FetchDate:    now,
		MTDTotal:     mtd.Total(),
		Currency:     mtd.Currency,
		DailyCosts:   mtd.Daily,
		ServiceCosts: mtd.Services,
		Range:        r,
	}
	if !o.adopt(ctx, gen, snap) {
		return nil
	}
	o.report(profile.Name, OutcomeFetched, now)

	if o.team != nil && !opts.BypassTeamCache {
		o.writeBackTeamCache(ctx, profile, snap)
	}
	o.runAnomalyDetection(ctx, snap)
	return nil
}

// adopt installs a snapshot in the local cache and mirrors it to storage.
// A result arriving after the selection moved to a different profile is
// discarded.
func (o *Orchestrator) adopt(ctx context.Context, gen uint64, snap costs.CostSnapshot) bool {
	o.mu.Lock()
	stale := gen != o.selGen && o.selected != snap.ProfileName
	o.mu.Unlock()
	if stale {
		o.logger.Debug("discarding refresh result for deselected profile", "profile", snap.ProfileName)
		return false
	}
	o.local.Put(snap)
	if o.store != nil {
		if err := o.store.SaveSnapshot(ctx, snap); err != nil {
			o.logger.Warn("failed to persist snapshot", "profile", snap.ProfileName, "error", err)
		}
	}
	return true
}

// writeBackTeamCache shares a fresh snapshot. Best effort: failures are
// logged, never surfaced.
func (o *Orchestrator) writeBackTeamCache(ctx context.Context, profile costs.Profile, snap costs.CostSnapshot) {
	accountID, err := o.resolveAccount(ctx, profile)
	if err != nil {
		return
	}
	if err := o.team.WriteSnapshot(ctx, snap, accountID); err != nil {
		o.logger.Warn("team cache write-back failed", "profile", profile.Name, "error", err)
	}
}

func (o *Orchestrator) runAnomalyDetection(ctx context.Context, snap costs.CostSnapshot) {
	if !o.anomOpts.Enabled {
		return
	}
	var history []costs.MonthlyTotal
	var lastMonth []costs.ServiceCost
	if o.history != nil {
		var err error
		history, lastMonth, err = o.history.MonthlyHistory(ctx, snap.ProfileName)
		if err != nil {
			o.logger.Warn("history lookup failed, anomaly baseline reduced",
				"profile", snap.ProfileName, "error", err)
		}
	}
	policy := o.policies.PolicyFor(snap.ProfileName)
	policy.Normalize()
	found := anomaly.Detect(anomaly.Input{
		ProfileName:       snap.ProfileName,
		CurrentTotal:      snap.MTDTotal,
		Daily:             snap.DailyCosts,
		Services:          snap.ServiceCosts,
		History:           history,
		LastMonthServices: lastMonth,
		Policy:            policy,
		Now:               o.clock.Now(),
	}, o.anomOpts)

	o.mu.Lock()
	o.anomalies[snap.ProfileName] = found
	o.mu.Unlock()

	if o.observer != nil {
		o.observer.AnomaliesDetected(snap.ProfileName, len(found))
	}
	for _, a := range found {
		o.logger.Warn("spending anomaly detected",
			"profile", snap.ProfileName, "kind", a.Kind, "severity", a.Severity, "message", a.Message)
	}
}

func (o *Orchestrator) report(profileName, outcome string, started time.Time) {
	if o.observer == nil {
		return
	}
	o.observer.RefreshOutcome(profileName, outcome, o.clock.Now().Sub(started))
}

// fetchRange is the billing query window: start of the month through the
// end of today (the end bound is exclusive).
func fetchRange(now time.Time) costs.DateRange {
	r := costs.MonthRange(now)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return costs.DateRange{Start: r.Start, End: dayStart.AddDate(0, 0, 1)}
}
