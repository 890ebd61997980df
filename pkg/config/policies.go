package config

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// PolicySet holds the budget policies derived from configuration. It is
// safe for concurrent use and supports wholesale replacement on config
// reload, so a refresh in flight always sees a complete policy.
type PolicySet struct {
	mu       sync.RWMutex
	policies map[string]costs.BudgetPolicy
}

// NewPolicySet returns an empty set. Unknown profiles resolve to defaults.
func NewPolicySet() *PolicySet {
	return &PolicySet{policies: make(map[string]costs.BudgetPolicy)}
}

// PoliciesFromConfig builds the set from validated configuration.
func PoliciesFromConfig(cfg *Config) *PolicySet {
	ps := NewPolicySet()
	ps.Reload(cfg)
	return ps
}

// Reload replaces the whole set from cfg. Budget strings were validated at
// load time; anything unparsable here is treated as no budget.
func (ps *PolicySet) Reload(cfg *Config) {
	policies := make(map[string]costs.BudgetPolicy, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		policy := costs.BudgetPolicy{
			ProfileName:     p.Name,
			AlertThreshold:  p.AlertThreshold,
			RefreshInterval: p.RefreshInterval,
		}
		if p.MonthlyBudget != "" {
			if budget, err := decimal.NewFromString(p.MonthlyBudget); err == nil {
				policy.MonthlyBudget = &budget
			}
		}
		policy.Normalize()
		policies[p.Name] = policy
	}
	ps.mu.Lock()
	ps.policies = policies
	ps.mu.Unlock()
}

// PolicyFor returns the policy for profileName, falling back to the default
// policy for unconfigured profiles.
func (ps *PolicySet) PolicyFor(profileName string) costs.BudgetPolicy {
	ps.mu.RLock()
	policy, ok := ps.policies[profileName]
	ps.mu.RUnlock()
	if !ok {
		return costs.DefaultPolicy(profileName)
	}
	return policy
}

// Update upserts a single policy, for runtime edits outside the config file.
func (ps *PolicySet) Update(policy costs.BudgetPolicy) {
	policy.Normalize()
	ps.mu.Lock()
	ps.policies[policy.ProfileName] = policy
	ps.mu.Unlock()
}
