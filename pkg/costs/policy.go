package costs

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget policy defaults.
const (
	// DefaultAlertThreshold is the fraction of the monthly budget at which
	// alerts begin.
	DefaultAlertThreshold = 0.8

	// DefaultRefreshInterval is how often a profile is refreshed when no
	// interval is configured.
	DefaultRefreshInterval = 5 * time.Minute

	// MinRefreshInterval is the smallest interval a policy may configure.
	MinRefreshInterval = time.Minute
)

// BudgetPolicy holds the per-profile budget and refresh settings.
//
// Policies are created lazily with defaults on first access and may be
// mutated by user action; persistence belongs to the storage layer.
type BudgetPolicy struct {
	// ProfileName is the profile this policy applies to.
	ProfileName string `json:"profile_name"`

	// MonthlyBudget is the optional monthly budget amount. Nil means no
	// budget is configured and budget-velocity checks are skipped.
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty"`

	// AlertThreshold is the fraction of MonthlyBudget (0..1] at which the
	// profile is considered near budget.
	AlertThreshold float64 `json:"alert_threshold"`

	// APIBudget is the optional monthly budget for metered API calls.
	APIBudget *decimal.Decimal `json:"api_budget,omitempty"`

	// RefreshInterval is how long a snapshot stays valid. Must be > 0.
	RefreshInterval time.Duration `json:"refresh_interval"`
}

// DefaultPolicy returns the policy applied to a profile that has never been
// configured.
func DefaultPolicy(profileName string) BudgetPolicy {
	return BudgetPolicy{
		ProfileName:     profileName,
		AlertThreshold:  DefaultAlertThreshold,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Normalize clamps out-of-range fields back to defaults so a policy loaded
// from storage or user input is always usable.
func (p *BudgetPolicy) Normalize() {
	if p.RefreshInterval < MinRefreshInterval {
		p.RefreshInterval = DefaultRefreshInterval
	}
	if p.AlertThreshold <= 0 || p.AlertThreshold > 1 {
		p.AlertThreshold = DefaultAlertThreshold
	}
}
