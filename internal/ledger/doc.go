// Package ledger persists per-poem pipeline state in SQLite. The ledger is
// the source of truth for batch orchestration: items are claimed atomically,
// attempts are charged at claim time, and finished work survives restarts.
package ledger
