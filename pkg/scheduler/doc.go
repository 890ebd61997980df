// Package scheduler drives periodic refreshes with two deliberately
// redundant timing mechanisms.
//
// The primary loop waits full intervals on the clock. The backstop loop
// wakes every half-minute and fires only when the primary has demonstrably
// missed its deadline; the short sleeps also notice machine suspend within
// one chunk instead of one interval. On top of both, a cron
// watchdog checks once a minute that the next scheduled refresh is not
// overdue and restarts the loops from scratch when it is.
//
// Every restart (Start, SetInterval, watchdog recovery) increments a
// generation counter; loops from older generations observe the bump and
// exit, so at most one pair of loops is ever live. Changing the interval
// therefore never double-fires and never leaves a stale timer running.
//
// Refreshes are suppressed while the user is idle, except that data older
// than StaleCeiling is refreshed regardless. Suppressed ticks still advance
// the schedule so the watchdog stays quiet.
package scheduler
