package ledger

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a ledger item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSynthesizing Status = "synthesizing"
	StatusRendering    Status = "rendering"
	StatusPublishing   Status = "publishing"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// InterruptedReason is the error message set when in-flight items are reset
// after an unclean shutdown.
const InterruptedReason = "processing interrupted"

var allStatuses = []Status{
	StatusPending,
	StatusSynthesizing,
	StatusRendering,
	StatusPublishing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSynthesizing: {},
	StatusRendering:    {},
	StatusPublishing:   {},
}

// Item represents one poem's journey through the pipeline, persisted in SQLite.
type Item struct {
	ID            string
	SourcePath    string
	Title         string
	Author        string
	Body          string
	Language      string
	Status        Status
	Attempts      int
	ErrorMessage  string
	AudioPath     string
	AlignmentPath string
	VideoPath     string
	OutputRef     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Eligible reports whether the item can be picked up by a batch run given the
// configured attempt ceiling.
func (i Item) Eligible(maxAttempts int) bool {
	switch i.Status {
	case StatusPending:
		return true
	case StatusFailed:
		return i.Attempts < maxAttempts
	default:
		return false
	}
}

// HealthSummary describes aggregated ledger counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Done       int
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	MissingColumns   []string
	TotalItems       int
	Error            string
}
