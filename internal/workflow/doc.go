// Package workflow runs one batch of poems through the production pipeline.
//
// The Runner claims eligible ledger items and drives each through synthesis,
// rendering, and publishing with a bounded worker pool. Failures are isolated
// per item: a poem that exhausts its retry budget or hits a validation error
// is marked failed in the ledger while the rest of the batch continues. A
// file lock keeps concurrent batch runs from double-claiming work on the
// same ledger.
package workflow
