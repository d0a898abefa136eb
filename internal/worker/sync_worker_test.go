package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"stripbot/internal/amqp"
	"stripbot/internal/core"
	"stripbot/internal/sheets/memory"
	"stripbot/internal/storage"
)

func setup(t *testing.T) (*storage.SQLiteRepository, *memory.Writer, *SyncWorker) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	w := memory.New()
	return repo, w, NewSyncWorker(repo, w, 10)
}

func storeEntry(t *testing.T, repo *storage.SQLiteRepository, userID int64, bank string, day core.Date, deposits string) int64 {
	t.Helper()
	v, _, err := repo.UpsertEntry(context.Background(), userID, core.BankLedgerEntry{
		BankName:       bank,
		Date:           day,
		OpeningBalance: decimal.Zero,
		DepositsToday:  decimal.RequireFromString(deposits),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return v
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	repo, w, worker := setup(t)
	day := core.NewDate(2025, 5, 1)
	v := storeEntry(t, repo, 1, "Nabil Bank", day, "300")

	msg := amqp.NewLedgerSyncMessage(1, "Nabil Bank", day.String(), v)
	if err := worker.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := w.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Row.DepositsToday != "300" || rows[0].Version != v || rows[0].UserID != 1 {
		t.Errorf("unexpected row: %+v", rows[0])
	}

	rec, err := repo.GetEntry(ctx, 1, "Nabil Bank", day)
	if err != nil {
		t.Fatal(err)
	}
	if rec.SyncedVersion != v {
		t.Errorf("expected synced version %d, got %d", v, rec.SyncedVersion)
	}

	// Redelivery of the same message is a no-op.
	if err := worker.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if len(w.Rows()) != 1 {
		t.Errorf("expected redelivery to be skipped, got %d rows", len(w.Rows()))
	}
}

func TestHandleSyncMessage_StaleVersion(t *testing.T) {
	ctx := context.Background()
	repo, w, worker := setup(t)
	day := core.NewDate(2025, 5, 1)
	v1 := storeEntry(t, repo, 1, "Nabil Bank", day, "300")
	v2 := storeEntry(t, repo, 1, "Nabil Bank", day, "400")
	if v2 <= v1 {
		t.Fatalf("expected version bump, got %d then %d", v1, v2)
	}

	if err := worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(1, "Nabil Bank", day.String(), v1)); err != nil {
		t.Fatal(err)
	}
	if len(w.Rows()) != 0 {
		t.Fatalf("stale message should not export, got %d rows", len(w.Rows()))
	}

	if err := worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(1, "Nabil Bank", day.String(), v2)); err != nil {
		t.Fatal(err)
	}
	rows := w.Rows()
	if len(rows) != 1 || rows[0].Row.DepositsToday != "400" {
		t.Fatalf("expected latest version exported, got %+v", rows)
	}
}

func TestHandleSyncMessage_MissingOrInvalid(t *testing.T) {
	ctx := context.Background()
	_, w, worker := setup(t)

	if err := worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(1, "Nabil Bank", "2025-05-01", 1)); err != nil {
		t.Errorf("missing entry should be skipped: %v", err)
	}
	if err := worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(1, "Nabil Bank", "not-a-date", 1)); err != nil {
		t.Errorf("invalid date should be dropped: %v", err)
	}
	if len(w.Rows()) != 0 {
		t.Errorf("expected nothing exported")
	}
}

func TestHandleSyncMessage_SheetsFailure(t *testing.T) {
	ctx := context.Background()
	repo, w, worker := setup(t)
	day := core.NewDate(2025, 5, 1)
	v := storeEntry(t, repo, 1, "Nabil Bank", day, "300")

	w.FailNext(1)
	if err := worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(1, "Nabil Bank", day.String(), v)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("entry should stay pending: %v %v", pending, err)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	repo, w, worker := setup(t)
	day := core.NewDate(2025, 5, 1)
	storeEntry(t, repo, 1, "Nabil Bank", day, "300")
	storeEntry(t, repo, 1, "Himalayan Bank", day, "50")
	storeEntry(t, repo, 2, "Nabil Bank", day.AddDays(1), "10")

	n, err := worker.ProcessPending(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(w.Rows()) != 2 {
		t.Fatalf("expected 2 exported, got n=%d rows=%d", n, len(w.Rows()))
	}

	if err := worker.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if len(w.Rows()) != 3 {
		t.Fatalf("expected remaining entry exported on startup, got %d rows", len(w.Rows()))
	}

	n, err = worker.ProcessPending(ctx, 0)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing pending, got %d %v", n, err)
	}
}

func TestProcessPending_SheetsFailure(t *testing.T) {
	ctx := context.Background()
	repo, w, worker := setup(t)
	storeEntry(t, repo, 1, "Nabil Bank", core.NewDate(2025, 5, 1), "300")

	w.FailNext(1)
	if _, err := worker.ProcessPending(ctx, 10); err == nil {
		t.Fatal("expected error")
	}
	n, err := worker.ProcessPending(ctx, 10)
	if err != nil || n != 1 {
		t.Fatalf("expected retry to export, got %d %v", n, err)
	}
}
