package costs

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile identifies one billing account being monitored.
// Profiles are immutable once loaded; their lifecycle belongs to the
// configuration layer.
type Profile struct {
	// Name is the unique profile identifier (AWS shared-config profile name).
	Name string `yaml:"name" json:"name"`

	// Region is the optional AWS region override for this profile.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`
}

// DailyCost is the total spend for a single calendar day.
type DailyCost struct {
	// Date is the day the cost applies to (midnight UTC).
	Date time.Time `json:"date"`

	// Amount is the spend for the day.
	Amount decimal.Decimal `json:"amount"`

	// Currency is the ISO 4217 currency code (e.g., "USD").
	Currency string `json:"currency"`
}

// ServiceCost is the month-to-date spend attributed to a single service.
type ServiceCost struct {
	// ServiceName is the billing service name (e.g., "Amazon EC2").
	ServiceName string `json:"service_name"`

	// Amount is the accumulated spend for the service.
	Amount decimal.Decimal `json:"amount"`

	// Currency is the ISO 4217 currency code.
	Currency string `json:"currency"`
}

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// CostSnapshot is a point-in-time capture of month-to-date spend for one
// profile. Snapshots are created whole on every successful fetch (live or
// remote-cache adoption) and are never partially updated.
type CostSnapshot struct {
	// ProfileName is the profile this snapshot belongs to.
	ProfileName string `json:"profile_name"`

	// FetchDate is when the data was fetched. Monotonically non-decreasing
	// per profile.
	FetchDate time.Time `json:"fetch_date"`

	// MTDTotal is the month-to-date total spend.
	MTDTotal decimal.Decimal `json:"mtd_total"`

	// Currency is the ISO 4217 currency code of MTDTotal.
	Currency string `json:"currency"`

	// DailyCosts holds the per-day totals for the covered range, ordered by date.
	DailyCosts []DailyCost `json:"daily_costs"`

	// ServiceCosts holds the per-service totals, ordered by descending amount.
	ServiceCosts []ServiceCost `json:"service_costs"`

	// Range is the half-open date range [Start, End) the data covers.
	Range DateRange `json:"range"`
}

// CoversMonth reports whether the snapshot's range starts in the same
// calendar month as t. A snapshot from a previous month is unusable no
// matter how recently it was fetched.
func (s *CostSnapshot) CoversMonth(t time.Time) bool {
	return s.Range.Start.Year() == t.Year() && s.Range.Start.Month() == t.Month()
}

// MonthToDate is the result of one upstream billing fetch.
type MonthToDate struct {
	// Services holds per-service totals for the fetched range.
	Services []ServiceCost

	// Daily holds per-day totals for the fetched range.
	Daily []DailyCost

	// Currency is the ISO 4217 currency code shared by all amounts.
	Currency string
}

// Total sums the per-service amounts.
func (m MonthToDate) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range m.Services {
		total = total.Add(s.Amount)
	}
	return total
}

// MonthlyTotal is one month of historical spend used as an anomaly baseline.
type MonthlyTotal struct {
	// Month is midnight UTC on the first day of the month.
	Month time.Time `json:"month"`

	// Total is the spend recorded for the month.
	Total decimal.Decimal `json:"total"`

	// Complete indicates the total covers the whole month. Incomplete
	// months are used as-is instead of being projected to day-of-month.
	Complete bool `json:"complete"`
}

// MonthRange returns the half-open range [first of t's month, first of the
// next month) in UTC.
func MonthRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// DaysInMonth returns the number of calendar days in t's month.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// ProjectToDay scales a complete month's total down to the first `day`
// days: (total / daysInMonth) * day. Used to compare prior months against
// the current partial month on equal footing.
func ProjectToDay(m MonthlyTotal, day int) decimal.Decimal {
	if !m.Complete {
		return m.Total
	}
	days := DaysInMonth(m.Month)
	if days == 0 || day <= 0 {
		return m.Total
	}
	return m.Total.Div(decimal.NewFromInt(int64(days))).Mul(decimal.NewFromInt(int64(day)))
}
