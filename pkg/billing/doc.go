// Package billing adapts AWS Cost Explorer to the month-to-date fetch
// interface the orchestrator consumes.
//
// The core treats the billing API as opaque: one call returns per-service
// totals, per-day totals, and a currency for a date range. GetCostAndUsage
// is queried with DAILY granularity grouped by SERVICE, so a single metered
// call yields both breakdowns. Errors pass through unclassified; the
// orchestrator's circuit breaker, not a retry loop, is the failure policy
// for this API.
package billing
