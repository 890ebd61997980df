// Package costs defines the core domain types for cost monitoring.
//
// # Overview
//
// The costs package holds the data model shared by every other package:
//
//   - Profile: one billing account/credential context being monitored
//   - BudgetPolicy: per-profile budget and refresh settings
//   - CostSnapshot: a point-in-time month-to-date cost capture
//   - DailyCost / ServiceCost: per-day and per-service cost lines
//   - APIRequestRecord: one entry in the rolling API call log
//   - Clock: injectable time source for deterministic tests
//
// All monetary amounts are arbitrary-precision decimals
// (github.com/shopspring/decimal). Floating-point is never used for money;
// summing many small per-service amounts with float64 accumulates error.
//
// The package has no behavior beyond small pure helpers (month ranges,
// day-of-month projection) and deliberately imports nothing else from this
// module so every other package can depend on it.
package costs
