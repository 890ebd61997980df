package anomaly

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// Severity ranks an anomaly.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Kind classifies an anomaly.
type Kind string

const (
	// KindSpike is spend unusually above the historical baseline.
	KindSpike Kind = "unusual_spike"

	// KindDrop is spend unusually below the historical baseline.
	KindDrop Kind = "unusual_drop"

	// KindBudgetVelocity is spend progressing faster than the month.
	KindBudgetVelocity Kind = "budget_velocity"

	// KindServiceConcentration is one service dominating total cost.
	KindServiceConcentration Kind = "service_concentration"
)

// Anomaly is one flagged spending pattern.
type Anomaly struct {
	// Kind classifies the anomaly.
	Kind Kind `json:"kind"`

	// Severity is warning or critical.
	Severity Severity `json:"severity"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// DeviationPercent quantifies how far off the expectation the value is.
	DeviationPercent float64 `json:"deviation_percent"`
}

// Options configures detection. Thresholds are configuration, never
// constants baked into the rules.
type Options struct {
	// Enabled turns detection on. Detect returns nil when false.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// ThresholdPercent is the deviation percentage above which spend is
	// anomalous. Applies to the historical and daily rules.
	ThresholdPercent float64 `yaml:"threshold_percent" json:"threshold_percent"`
}

// DefaultOptions returns detection enabled at a 25% threshold.
func DefaultOptions() Options {
	return Options{Enabled: true, ThresholdPercent: 25}
}

// criticalDeviationPercent is the deviation above which a historical or
// daily anomaly is critical rather than a warning.
const criticalDeviationPercent = 50

// Input carries everything Detect needs. All fields are read-only.
type Input struct {
	// ProfileName names the profile for messages.
	ProfileName string

	// CurrentTotal is the month-to-date total spend.
	CurrentTotal decimal.Decimal

	// Daily holds the current month's per-day totals, ordered by date.
	Daily []costs.DailyCost

	// Services holds the current month's per-service totals.
	Services []costs.ServiceCost

	// History holds prior months' totals for the baseline.
	History []costs.MonthlyTotal

	// LastMonthServices is the previous month's service breakdown, used to
	// call out services that are new this month.
	LastMonthServices []costs.ServiceCost

	// Policy supplies the monthly budget for the velocity rule.
	Policy costs.BudgetPolicy

	// Now is the evaluation time (day-of-month drives projections).
	Now time.Time
}

// Detect runs all rules and returns the flagged anomalies, or nil when
// detection is disabled.
func Detect(in Input, opts Options) []Anomaly {
	if !opts.Enabled {
		return nil
	}
	if opts.ThresholdPercent <= 0 {
		opts.ThresholdPercent = DefaultOptions().ThresholdPercent
	}

	var out []Anomaly
	out = append(out, detectHistoricalDeviation(in, opts)...)
	out = append(out, detectBudgetVelocity(in)...)
	out = append(out, detectServiceConcentration(in)...)
	out = append(out, detectDailyOutliers(in, opts)...)
	return out
}

// detectHistoricalDeviation compares the current total against prior months
// projected to the current day-of-month. Requires at least two months of
// history; fewer means no baseline and the rule is silently skipped.
func detectHistoricalDeviation(in Input, opts Options) []Anomaly {
	if len(in.History) < 2 {
		return nil
	}

	day := in.Now.Day()
	sum := decimal.Zero
	for _, m := range in.History {
		sum = sum.Add(costs.ProjectToDay(m, day))
	}
	average := sum.Div(decimal.NewFromInt(int64(len(in.History))))
	if !average.IsPositive() {
		return nil
	}

	deviation, _ := in.CurrentTotal.Sub(average).Div(average).Mul(decimal.NewFromInt(100)).Float64()
	magnitude := deviation
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude <= opts.ThresholdPercent {
		return nil
	}

	severity := SeverityWarning
	if magnitude > criticalDeviationPercent {
		severity = SeverityCritical
	}

	kind := KindSpike
	verb := "above"
	if deviation < 0 {
		kind = KindDrop
		verb = "below"
	}
	return []Anomaly{{
		Kind:     kind,
		Severity: severity,
		Message: fmt.Sprintf("%s: month-to-date spend %s is %.1f%% %s the historical average %s for day %d",
			in.ProfileName, in.CurrentTotal.StringFixed(2), magnitude, verb, average.StringFixed(2), day),
		DeviationPercent: magnitude,
	}}
}

// detectBudgetVelocity flags spend progressing much faster than the month.
func detectBudgetVelocity(in Input) []Anomaly {
	budget := in.Policy.MonthlyBudget
	if budget == nil || !budget.IsPositive() {
		return nil
	}

	spendingProgress, _ := in.CurrentTotal.Div(*budget).Float64()
	monthProgress := float64(in.Now.Day()) / float64(costs.DaysInMonth(in.Now))

	if spendingProgress <= 1.5*monthProgress || spendingProgress <= 0.5 {
		return nil
	}

	severity := SeverityWarning
	if spendingProgress > 0.9 {
		severity = SeverityCritical
	}

	var msg string
	if spendingProgress >= 1.0 {
		msg = fmt.Sprintf("%s: monthly budget %s already exhausted (%.0f%% spent) with %.0f%% of the month remaining",
			in.ProfileName, budget.StringFixed(2), spendingProgress*100, (1-monthProgress)*100)
	} else {
		msg = fmt.Sprintf("%s: %.0f%% of the monthly budget spent at only %.0f%% of the month",
			in.ProfileName, spendingProgress*100, monthProgress*100)
	}

	deviation := 0.0
	if monthProgress > 0 {
		deviation = (spendingProgress/monthProgress - 1) * 100
	}
	return []Anomaly{{
		Kind:             KindBudgetVelocity,
		Severity:         severity,
		Message:          msg,
		DeviationPercent: deviation,
	}}
}

// Concentration thresholds: share of total cost above which a single
// service is flagged, and above which the flag is critical.
const (
	concentrationWarningPercent  = 30
	concentrationCriticalPercent = 50
)

// detectServiceConcentration flags any service whose share of the total
// exceeds the concentration threshold. Services absent from last month's
// breakdown are called out as new.
func detectServiceConcentration(in Input) []Anomaly {
	if !in.CurrentTotal.IsPositive() {
		return nil
	}

	lastMonth := make(map[string]bool, len(in.LastMonthServices))
	for _, s := range in.LastMonthServices {
		lastMonth[s.ServiceName] = true
	}

	var out []Anomaly
	for _, svc := range in.Services {
		share, _ := svc.Amount.Div(in.CurrentTotal).Mul(decimal.NewFromInt(100)).Float64()
		if share <= concentrationWarningPercent {
			continue
		}

		severity := SeverityWarning
		if share > concentrationCriticalPercent {
			severity = SeverityCritical
		}

		novelty := ""
		if len(in.LastMonthServices) > 0 && !lastMonth[svc.ServiceName] {
			novelty = " (new this month)"
		}
		out = append(out, Anomaly{
			Kind:     KindServiceConcentration,
			Severity: severity,
			Message: fmt.Sprintf("%s: %s%s accounts for %.1f%% of month-to-date cost",
				in.ProfileName, svc.ServiceName, novelty, share),
			DeviationPercent: share,
		})
	}
	return out
}

// dailyWindow is the number of trailing daily values the outlier pass looks at.
const dailyWindow = 7

// detectDailyOutliers compares each of the last seven daily values against
// their own seven-day average. A finer-grained secondary pass; it needs the
// full window to have a meaningful baseline.
func detectDailyOutliers(in Input, opts Options) []Anomaly {
	if len(in.Daily) < dailyWindow {
		return nil
	}
	window := in.Daily[len(in.Daily)-dailyWindow:]

	sum := decimal.Zero
	for _, d := range window {
		sum = sum.Add(d.Amount)
	}
	average := sum.Div(decimal.NewFromInt(dailyWindow))
	if !average.IsPositive() {
		return nil
	}

	var out []Anomaly
	for _, d := range window {
		deviation, _ := d.Amount.Sub(average).Div(average).Mul(decimal.NewFromInt(100)).Float64()
		magnitude := deviation
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if magnitude <= opts.ThresholdPercent {
			continue
		}

		severity := SeverityWarning
		if magnitude > criticalDeviationPercent {
			severity = SeverityCritical
		}
		kind := KindSpike
		verb := "above"
		if deviation < 0 {
			kind = KindDrop
			verb = "below"
		}
		out = append(out, Anomaly{
			Kind:     kind,
			Severity: severity,
			Message: fmt.Sprintf("%s: daily spend %s on %s is %.1f%% %s the 7-day average %s",
				in.ProfileName, d.Amount.StringFixed(2), d.Date.Format("2006-01-02"),
				magnitude, verb, average.StringFixed(2)),
			DeviationPercent: magnitude,
		})
	}
	return out
}
