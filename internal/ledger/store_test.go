package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"versecast/internal/ledger"
	"versecast/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	item := testsupport.SeedPoem(t, store, "la_cancion", "La Cancion", "Anonimo", "verso uno\nverso dos")
	if item.Status != ledger.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, "la_cancion")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "La Cancion" || fetched.Author != "Anonimo" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "oda", "Oda", "Neruda", "primer verso")

	claimed, ok, err := store.Claim(ctx, "oda", 3)
	if err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected one attempt after claim, got %d", claimed.Attempts)
	}
	if err := store.MarkDone(ctx, "oda", "drive://file-1"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	// Re-scanning the source directory upserts again with revised text.
	updated, err := store.Upsert(ctx, &ledger.Item{ID: "oda", Title: "Oda al Mar", Author: "Neruda", Body: "primer verso revisado"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if updated.Status != ledger.StatusDone {
		t.Fatalf("expected upsert to preserve done status, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Fatalf("expected upsert to preserve attempts, got %d", updated.Attempts)
	}
	if updated.OutputRef != "drive://file-1" {
		t.Fatalf("expected upsert to preserve output ref, got %q", updated.OutputRef)
	}
	if updated.Title != "Oda al Mar" {
		t.Fatalf("expected refreshed title, got %q", updated.Title)
	}
}

func TestClaimChargesAttemptAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "soneto", "Soneto", "Quevedo", "cuerpo")

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Claim(ctx, "soneto", 3)
			if err != nil {
				t.Errorf("Claim failed: %v", err)
				return
			}
			if ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", won)
	}

	item, err := store.GetByID(ctx, "soneto")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Attempts != 1 {
		t.Fatalf("expected one charged attempt, got %d", item.Attempts)
	}
	if item.Status != ledger.StatusSynthesizing {
		t.Fatalf("expected synthesizing status, got %s", item.Status)
	}
}

func TestClaimRespectsRetryBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "romance", "Romance", "Lorca", "cuerpo")

	for attempt := 1; attempt <= 2; attempt++ {
		_, ok, err := store.Claim(ctx, "romance", 2)
		if err != nil || !ok {
			t.Fatalf("claim %d failed: ok=%v err=%v", attempt, ok, err)
		}
		if err := store.MarkFailed(ctx, "romance", "tts unavailable", true, 2); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	if _, ok, err := store.Claim(ctx, "romance", 2); err != nil {
		t.Fatalf("Claim failed: %v", err)
	} else if ok {
		t.Fatal("expected claim to be rejected once the budget is spent")
	}
}

func TestMarkFailedNonRetryableExhaustsBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "copla", "Copla", "Anonimo", "cuerpo")

	if _, ok, err := store.Claim(ctx, "copla", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkFailed(ctx, "copla", "header missing author", false, 3); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	item, err := store.GetByID(ctx, "copla")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Attempts != 3 {
		t.Fatalf("expected attempts raised to ceiling, got %d", item.Attempts)
	}
	if item.ErrorMessage != "header missing author" {
		t.Fatalf("unexpected error message: %q", item.ErrorMessage)
	}

	eligible, err := store.ListEligible(ctx, 3)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible items, got %d", len(eligible))
	}
}

func TestListEligibleFiltersAndOrders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testsupport.SeedPoem(t, store, fmt.Sprintf("poem_%d", i), fmt.Sprintf("Poem %d", i), "Autor", "cuerpo")
	}

	// poem_0 finishes, poem_1 fails with budget left, poem_2 stays pending.
	if _, ok, err := store.Claim(ctx, "poem_0", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkDone(ctx, "poem_0", "out/poem_0.mp4"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if _, ok, err := store.Claim(ctx, "poem_1", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkFailed(ctx, "poem_1", "ffmpeg exit 1", true, 3); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	eligible, err := store.ListEligible(ctx, 3)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected two eligible items, got %d", len(eligible))
	}
	got := map[string]bool{}
	for _, item := range eligible {
		got[item.ID] = true
	}
	if !got["poem_1"] || !got["poem_2"] {
		t.Fatalf("unexpected eligible set: %v", got)
	}
}

func TestMarkDoneRecordsOutputAndTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "haiku", "Haiku", "Anonimo", "cuerpo")
	if _, ok, err := store.Claim(ctx, "haiku", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.RecordSynthesis(ctx, "haiku", "/tmp/haiku.wav", "/tmp/haiku.json"); err != nil {
		t.Fatalf("RecordSynthesis failed: %v", err)
	}
	if err := store.MarkStatus(ctx, "haiku", ledger.StatusRendering); err != nil {
		t.Fatalf("MarkStatus failed: %v", err)
	}
	if err := store.RecordVideo(ctx, "haiku", "/tmp/haiku.mp4"); err != nil {
		t.Fatalf("RecordVideo failed: %v", err)
	}
	if err := store.MarkDone(ctx, "haiku", "yt://video-9"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	item, err := store.GetByID(ctx, "haiku")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusDone {
		t.Fatalf("expected done status, got %s", item.Status)
	}
	if item.OutputRef != "yt://video-9" || item.AudioPath != "/tmp/haiku.wav" || item.VideoPath != "/tmp/haiku.mp4" {
		t.Fatalf("unexpected artifact fields: %#v", item)
	}
	if item.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
	if item.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", item.ErrorMessage)
	}
}

func TestMarkDoneRepeatedCallLeavesRowUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "haiku", "Haiku", "Anonimo", "cuerpo")
	if _, ok, err := store.Claim(ctx, "haiku", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkDone(ctx, "haiku", "yt://video-9"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	first, err := store.GetByID(ctx, "haiku")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if first.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}

	time.Sleep(5 * time.Millisecond)
	if err := store.MarkDone(ctx, "haiku", "yt://video-9"); err != nil {
		t.Fatalf("repeated MarkDone failed: %v", err)
	}

	second, err := store.GetByID(ctx, "haiku")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !second.ProcessedAt.Equal(*first.ProcessedAt) {
		t.Fatalf("processed_at moved on repeat: %v vs %v", second.ProcessedAt, first.ProcessedAt)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("updated_at moved on repeat: %v vs %v", second.UpdatedAt, first.UpdatedAt)
	}
	if second.Status != first.Status || second.OutputRef != first.OutputRef || second.Attempts != first.Attempts {
		t.Fatalf("row changed on repeat: %#v vs %#v", second, first)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	statuses := []ledger.Status{ledger.StatusSynthesizing, ledger.StatusRendering, ledger.StatusPublishing}
	for i, status := range statuses {
		id := fmt.Sprintf("stuck_%d", i)
		testsupport.SeedPoem(t, store, id, "Stuck", "Autor", "cuerpo")
		if _, ok, err := store.Claim(ctx, id, 3); err != nil || !ok {
			t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
		}
		if err := store.MarkStatus(ctx, id, status); err != nil {
			t.Fatalf("MarkStatus failed: %v", err)
		}
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(statuses) {
		t.Fatalf("expected %d items reset, got %d", len(statuses), count)
	}

	items, err := store.List(ctx, ledger.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, item := range items {
		if item.ErrorMessage != ledger.InterruptedReason {
			t.Fatalf("unexpected error message: %q", item.ErrorMessage)
		}
		if item.Attempts != 1 {
			t.Fatalf("expected charged attempt preserved, got %d", item.Attempts)
		}
	}
}

func TestRetryFailedResetsBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "elegia", "Elegia", "Hernandez", "cuerpo")
	if _, ok, err := store.Claim(ctx, "elegia", 1); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkFailed(ctx, "elegia", "render timeout", true, 1); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, "elegia")
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one item reset, got %d", count)
	}

	item, err := store.GetByID(ctx, "elegia")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusPending || item.Attempts != 0 || item.ErrorMessage != "" {
		t.Fatalf("unexpected item after retry: %#v", item)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.SeedPoem(t, store, "a", "A", "Autor", "cuerpo")
	testsupport.SeedPoem(t, store, "b", "B", "Autor", "cuerpo")
	if _, ok, err := store.Claim(ctx, "b", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.MarkDone(ctx, "b", "out/b.mp4"); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusPending] != 1 || stats[ledger.StatusDone] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Done != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ledger.ParseStatus(" Rendering "); !ok || status != ledger.StatusRendering {
		t.Fatalf("expected rendering, got %q ok=%v", status, ok)
	}
	if _, ok := ledger.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
