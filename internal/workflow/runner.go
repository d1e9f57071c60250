package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"versecast/internal/config"
	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/notifications"
	"versecast/internal/publish"
	"versecast/internal/services"
	"versecast/internal/services/tts"
)

// ErrAlreadyRunning is returned when another batch run holds the ledger lock.
var ErrAlreadyRunning = errors.New("another batch run is already in progress")

// Synthesizer narrates poem text into audio artifacts.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) (tts.Result, error)
}

// Options control a single batch run.
type Options struct {
	// Limit caps how many items this run may claim; zero means no cap.
	Limit int
	// DryRun reports eligible work without processing anything.
	DryRun bool
}

// Report summarizes a completed batch run.
type Report struct {
	RunID     string
	Eligible  int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Runner orchestrates one batch of poems from ledger to published video.
type Runner struct {
	cfg       *config.Config
	store     *ledger.Store
	synth     Synthesizer
	composer  Composer
	publisher publish.Publisher
	notifier  notifications.Service
	logger    *slog.Logger
	lock      *flock.Flock
}

// NewRunner wires a batch runner from its collaborators.
func NewRunner(
	cfg *config.Config,
	store *ledger.Store,
	synth Synthesizer,
	composer Composer,
	publisher publish.Publisher,
	notifier notifications.Service,
	logger *slog.Logger,
) *Runner {
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		store:     store,
		synth:     synth,
		composer:  composer,
		publisher: publisher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		lock:      flock.New(filepath.Join(cfg.Paths.DataDir, "versecast.lock")),
	}
}

// Run executes one batch: recover interrupted items, collect eligible work,
// and process it with the configured worker pool. The ledger lock is held
// for the duration so overlapping runs cannot double-claim items.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	started := time.Now()

	locked, err := r.lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !locked {
		return report, ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release ledger lock", logging.Error(unlockErr))
		}
	}()

	ctx = services.WithRequestID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	reset, err := r.store.ResetStuckProcessing(ctx)
	if err != nil {
		return report, fmt.Errorf("recover interrupted items: %w", err)
	}
	if reset > 0 {
		logger.Warn("recovered items interrupted by a previous run", logging.Int64("count", reset))
	}

	eligible, err := r.store.ListEligible(ctx, r.cfg.Workflow.MaxAttempts)
	if err != nil {
		return report, fmt.Errorf("list eligible items: %w", err)
	}
	if opts.Limit > 0 && len(eligible) > opts.Limit {
		report.Skipped = len(eligible) - opts.Limit
		eligible = eligible[:opts.Limit]
	}
	report.Eligible = len(eligible)

	if len(eligible) == 0 {
		logger.Info("no eligible items")
		report.Duration = time.Since(started)
		return report, nil
	}
	if opts.DryRun {
		for _, item := range eligible {
			logger.Info("would process",
				logging.String(logging.FieldItemID, item.ID),
				logging.Int("attempts", item.Attempts))
		}
		report.Duration = time.Since(started)
		return report, nil
	}

	if err := r.notifier.NotifyBatchStarted(ctx, len(eligible)); err != nil {
		logger.Warn("batch start notification failed", logging.Error(err))
	}

	workers := r.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(eligible) {
		workers = len(eligible)
	}

	jobs := make(chan *ledger.Item)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
		skipped   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				outcome := r.runItem(ctx, item)
				mu.Lock()
				switch outcome {
				case outcomeSucceeded:
					succeeded++
				case outcomeFailed:
					failed++
				default:
					skipped++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, item := range eligible {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	report.Succeeded = succeeded
	report.Failed = failed
	report.Skipped += skipped
	report.Duration = time.Since(started)

	if err := r.notifier.NotifyBatchCompleted(ctx, succeeded, failed, report.Duration); err != nil {
		logger.Warn("batch completion notification failed", logging.Error(err))
	}
	logger.Info("batch complete",
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed),
		logging.Int("skipped", report.Skipped),
		logging.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type itemOutcome int

const (
	outcomeSkipped itemOutcome = iota
	outcomeSucceeded
	outcomeFailed
)

// runItem claims and processes a single poem. Every failure path marks the
// item in the ledger and returns; nothing here aborts the batch.
func (r *Runner) runItem(ctx context.Context, queued *ledger.Item) itemOutcome {
	ctx = services.WithItemID(ctx, queued.ID)
	logger := logging.WithContext(ctx, r.logger)

	item, claimed, err := r.store.Claim(ctx, queued.ID, r.cfg.Workflow.MaxAttempts)
	if err != nil {
		logger.Error("claim failed", logging.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		logger.Debug("item no longer eligible")
		return outcomeSkipped
	}

	logger.Info("processing poem",
		logging.String("title", item.Title),
		logging.Int("attempt", item.Attempts))

	if err := r.processItem(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			// The interruption reset on the next run will handle state.
			return outcomeSkipped
		}
		retryable := services.IsRetryable(err)
		if markErr := r.store.MarkFailed(ctx, item.ID, err.Error(), retryable, r.cfg.Workflow.MaxAttempts); markErr != nil {
			logger.Error("failed to record item failure", logging.Error(markErr))
		}
		logger.Error("poem failed",
			logging.Error(err),
			logging.Bool("retryable", retryable))
		if notifyErr := r.notifier.NotifyItemFailed(ctx, item.Title, err); notifyErr != nil {
			logger.Warn("failure notification failed", logging.Error(notifyErr))
		}
		return outcomeFailed
	}
	return outcomeSucceeded
}
