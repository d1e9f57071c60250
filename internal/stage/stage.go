// Package stage defines the readiness contract shared by pipeline
// collaborators. Each external dependency (speech engine, compositor,
// publisher, ledger) reports a Health record so the CLI can diagnose a
// broken setup before a batch run wastes work.
package stage

import "context"

// Checker is implemented by every collaborator that can verify its own
// dependencies ahead of a run.
type Checker interface {
	HealthCheck(ctx context.Context) Health
}

// CheckAll runs every checker and returns the collected records.
func CheckAll(ctx context.Context, checkers ...Checker) []Health {
	results := make([]Health, 0, len(checkers))
	for _, checker := range checkers {
		if checker == nil {
			continue
		}
		results = append(results, checker.HealthCheck(ctx))
	}
	return results
}

// AllReady reports whether every record is healthy.
func AllReady(results []Health) bool {
	for _, health := range results {
		if !health.Ready {
			return false
		}
	}
	return true
}
