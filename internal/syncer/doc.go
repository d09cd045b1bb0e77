// Package syncer drives one sync run: resolve the roster, fetch and
// normalize each constituent's history, and commit rows to the store.
//
// Failure policy: only roster resolution is fatal. Every
// per-instrument failure is recorded in the RunResult and the
// remaining instruments keep going. A run-level timeout marks
// instruments that never started instead of dropping them silently.
package syncer
