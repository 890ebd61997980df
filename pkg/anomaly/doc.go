// Package anomaly flags unusual spending patterns in fetched cost data.
//
// Detect is a pure function over the current month-to-date numbers, the
// historical monthly baselines, and the profile's budget policy. It runs on
// every successful fetch and its output is transient: anomalies are
// recomputed wholesale, never persisted.
//
// Four rules:
//
//   - Deviation from the historical average, with prior complete months
//     projected to the current day-of-month. Skipped silently when fewer
//     than two months of history exist.
//   - Budget velocity: spending progress far ahead of month progress.
//   - Service concentration: one service dominating total cost.
//   - Daily spikes/drops: each of the last seven daily values against their
//     own seven-day average.
//
// Thresholds come from Options, not constants. All arithmetic is decimal;
// percentages only become float64 at the reporting boundary.
package anomaly
