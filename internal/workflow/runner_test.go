package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/notifications"
	"versecast/internal/publish"
	"versecast/internal/render"
	"versecast/internal/services"
	"versecast/internal/services/tts"
	"versecast/internal/testsupport"
	"versecast/internal/workflow"
)

const validBody = "Título: Prueba\nAutor: Autor\n\nverso uno\nverso dos\n"

type stubSynth struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (s *stubSynth) Synthesize(_ context.Context, req tts.Request) (tts.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != nil {
		if err, ok := s.fail[req.BaseName]; ok {
			return tts.Result{}, err
		}
	}
	return tts.Result{
		AudioPath:       "/tmp/" + req.BaseName + ".wav",
		DurationSeconds: 6,
	}, nil
}

type stubComposer struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *stubComposer) Compose(_ context.Context, req render.Request, outputPath string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if len(req.Spans) == 0 {
		return errors.New("no spans in request")
	}
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    []string
	finished  bool
}

func (n *recordingNotifier) NotifyBatchStarted(_ context.Context, count int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = count
	return nil
}

func (n *recordingNotifier) NotifyItemCompleted(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
	return nil
}

func (n *recordingNotifier) NotifyItemFailed(_ context.Context, title string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
	return nil
}

func (n *recordingNotifier) NotifyBatchCompleted(_ context.Context, _, _ int, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = true
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func newRunner(t *testing.T, synth *stubSynth, composer *stubComposer, notifier notifications.Service) (*workflow.Runner, *ledger.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	runner := workflow.NewRunner(cfg, store, synth, composer, publish.NewNop(), notifier, logging.NewNop())
	return runner, store
}

func seedValid(t *testing.T, store *ledger.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		testsupport.SeedPoem(t, store, id, "Prueba "+id, "Autor", validBody)
	}
}

func TestRunProcessesAllEligibleItems(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	notifier := &recordingNotifier{}
	runner, store := newRunner(t, synth, composer, notifier)
	seedValid(t, store, "uno", "dos", "tres")

	report, err := runner.Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 3 || report.Failed != 0 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if notifier.started != 3 || notifier.completed != 3 || !notifier.finished {
		t.Fatalf("unexpected notifications: %#v", notifier)
	}

	ctx := context.Background()
	for _, id := range []string{"uno", "dos", "tres"} {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item.Status != ledger.StatusDone {
			t.Fatalf("expected %s done, got %s", id, item.Status)
		}
		if !strings.HasSuffix(item.OutputRef, id+".mp4") {
			t.Fatalf("unexpected output ref: %q", item.OutputRef)
		}
		if item.VideoPath == "" || item.AudioPath == "" {
			t.Fatalf("expected recorded artifacts: %#v", item)
		}
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	synth := &stubSynth{fail: map[string]error{
		"dos": services.Wrap(services.ErrExternalTool, "tts", "synthesize", "engine crashed", errors.New("exit status 1")),
	}}
	composer := &stubComposer{}
	notifier := &recordingNotifier{}
	runner, store := newRunner(t, synth, composer, notifier)
	seedValid(t, store, "uno", "dos", "tres")

	report, err := runner.Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("expected one failure notification, got %v", notifier.failed)
	}

	item, err := store.GetByID(context.Background(), "dos")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusFailed {
		t.Fatalf("expected failed status, got %s", item.Status)
	}
	if item.Attempts != 1 {
		t.Fatalf("expected retryable failure to keep one attempt, got %d", item.Attempts)
	}
	if !strings.Contains(item.ErrorMessage, "engine crashed") {
		t.Fatalf("unexpected error message: %q", item.ErrorMessage)
	}
}

func TestRunValidationFailureExhaustsBudget(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	runner, store := newRunner(t, synth, composer, notifications.NewNop())
	testsupport.SeedPoem(t, store, "roto", "Roto", "", "no header at all\n")

	report, err := runner.Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}

	item, err := store.GetByID(context.Background(), "roto")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusFailed {
		t.Fatalf("expected failed status, got %s", item.Status)
	}
	// Malformed documents never fix themselves: the budget is spent.
	if item.Eligible(3) {
		t.Fatalf("expected item out of budget, got %#v", item)
	}
	if synth.calls != 0 {
		t.Fatalf("expected no synthesis for malformed poem, got %d calls", synth.calls)
	}
}

func TestRunDoesNotReprocessFinishedItems(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	runner, store := newRunner(t, synth, composer, notifications.NewNop())
	seedValid(t, store, "uno")

	ctx := context.Background()
	if _, err := runner.Run(ctx, workflow.Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if synth.calls != 1 {
		t.Fatalf("expected one synthesis, got %d", synth.calls)
	}

	report, err := runner.Run(ctx, workflow.Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.Eligible != 0 || report.Succeeded != 0 {
		t.Fatalf("expected empty second run, got %#v", report)
	}
	if synth.calls != 1 {
		t.Fatalf("expected finished item untouched, got %d synthesis calls", synth.calls)
	}
}

func TestRunRespectsLimit(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	runner, store := newRunner(t, synth, composer, notifications.NewNop())
	seedValid(t, store, "uno", "dos", "tres", "cuatro")

	report, err := runner.Run(context.Background(), workflow.Options{Limit: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Eligible != 2 || report.Succeeded != 2 || report.Skipped != 2 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	runner, store := newRunner(t, synth, composer, notifications.NewNop())
	seedValid(t, store, "uno", "dos")

	report, err := runner.Run(context.Background(), workflow.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Eligible != 2 || report.Succeeded != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if synth.calls != 0 || composer.calls != 0 {
		t.Fatal("expected dry run to invoke no collaborators")
	}

	items, err := store.List(context.Background(), ledger.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected both items still pending, got %d", len(items))
	}
	for _, item := range items {
		if item.Attempts != 0 {
			t.Fatalf("expected no attempts charged, got %#v", item)
		}
	}
}

func TestRunWithWorkerPool(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(4))
	store := testsupport.MustOpenLedger(t, cfg)
	runner := workflow.NewRunner(cfg, store, synth, composer, publish.NewNop(), notifications.NewNop(), logging.NewNop())

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, fmt.Sprintf("poema_%02d", i))
	}
	seedValid(t, store, ids...)

	report, err := runner.Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 12 || report.Failed != 0 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestRunRecoversInterruptedItems(t *testing.T) {
	synth := &stubSynth{}
	composer := &stubComposer{}
	runner, store := newRunner(t, synth, composer, notifications.NewNop())
	seedValid(t, store, "uno")

	ctx := context.Background()
	// Simulate a crash mid-render from a previous run.
	if _, ok, err := store.Claim(ctx, "uno", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkStatus(ctx, "uno", ledger.StatusRendering); err != nil {
		t.Fatalf("MarkStatus failed: %v", err)
	}

	report, err := runner.Run(ctx, workflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected recovered item to finish, got %#v", report)
	}

	item, err := store.GetByID(ctx, "uno")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusDone {
		t.Fatalf("expected done, got %s", item.Status)
	}
	// One attempt from the simulated crash, one from the recovery run.
	if item.Attempts != 2 {
		t.Fatalf("expected two charged attempts, got %d", item.Attempts)
	}
}
