package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"stripbot/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDepositsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2025, 5, 1)

	for _, a := range []string{"300", "200.50"} {
		if _, err := repo.AddDeposit(ctx, 1, "Nabil Bank", day, d(a)); err != nil {
			t.Fatalf("add deposit: %v", err)
		}
	}
	if _, err := repo.AddDeposit(ctx, 2, "Nabil Bank", day, d("999")); err != nil {
		t.Fatal(err)
	}

	got, err := repo.DepositsFor(ctx, 1, "Nabil Bank", day)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].Equal(d("300")) || !got[1].Equal(d("200.5")) {
		t.Fatalf("unexpected deposits: %v", got)
	}
	none, err := repo.DepositsFor(ctx, 1, "Nabil Bank", day.AddDays(1))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no deposits next day: %v %v", none, err)
	}
}

func TestLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2025, 5, 1)

	l, err := repo.LimitFor(ctx, 1, "Nabil Bank", day)
	if err != nil || l.Valid {
		t.Fatalf("expected no limit: %+v %v", l, err)
	}
	if err := repo.SetLimit(ctx, 1, "Nabil Bank", day, d("1000")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetLimit(ctx, 1, "Nabil Bank", day, d("1500")); err != nil {
		t.Fatal(err)
	}
	l, err = repo.LimitFor(ctx, 1, "Nabil Bank", day)
	if err != nil || !l.Valid || !l.Decimal.Equal(d("1500")) {
		t.Fatalf("expected limit 1500: %+v %v", l, err)
	}
}

func TestUpsertEntryVersions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := core.BankLedgerEntry{
		BankName:       "Nabil Bank",
		Date:           core.NewDate(2025, 5, 1),
		OpeningBalance: decimal.Zero,
		DepositsToday:  d("500"),
		Limit:          decimal.NewNullDecimal(d("1000")),
		Remaining:      decimal.NewNullDecimal(d("500")),
	}

	v, changed, err := repo.UpsertEntry(ctx, 1, e)
	if err != nil || v != 1 || !changed {
		t.Fatalf("first upsert: v=%d changed=%v err=%v", v, changed, err)
	}
	v, changed, err = repo.UpsertEntry(ctx, 1, e)
	if err != nil || v != 1 || changed {
		t.Fatalf("identical upsert should not bump: v=%d changed=%v err=%v", v, changed, err)
	}
	e.DepositsToday = d("600")
	e.Remaining = decimal.NewNullDecimal(d("400"))
	v, changed, err = repo.UpsertEntry(ctx, 1, e)
	if err != nil || v != 2 || !changed {
		t.Fatalf("changed upsert: v=%d changed=%v err=%v", v, changed, err)
	}

	rec, err := repo.GetEntry(ctx, 1, "Nabil Bank", e.Date)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Entry.Remaining.Decimal.Equal(d("400")) || rec.Version != 2 || rec.SyncedVersion != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Entry.Date.String() != "2025-05-01" {
		t.Fatalf("date round trip: %s", rec.Entry.Date)
	}

	if _, err := repo.GetEntry(ctx, 1, "Nabil Bank", e.Date.AddDays(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertEntryWithoutLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := core.BankLedgerEntry{
		BankName:       "Sanima Bank",
		Date:           core.NewDate(2025, 5, 1),
		OpeningBalance: decimal.Zero,
		DepositsToday:  d("20"),
	}
	if _, _, err := repo.UpsertEntry(ctx, 1, e); err != nil {
		t.Fatal(err)
	}
	if _, changed, err := repo.UpsertEntry(ctx, 1, e); err != nil || changed {
		t.Fatalf("NULL columns must compare equal: changed=%v err=%v", changed, err)
	}
	rec, err := repo.GetEntry(ctx, 1, "Sanima Bank", e.Date)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Entry.Limit.Valid || rec.Entry.Remaining.Valid {
		t.Fatalf("expected NULL limit/remaining: %+v", rec.Entry)
	}
}

func TestPriorAndLaterEntries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	bank := "Everest Bank"
	for _, day := range []int{1, 3, 7} {
		e := core.BankLedgerEntry{
			BankName:       bank,
			Date:           core.NewDate(2025, 5, day),
			OpeningBalance: decimal.Zero,
			DepositsToday:  decimal.NewFromInt(int64(day)),
		}
		if _, _, err := repo.UpsertEntry(ctx, 1, e); err != nil {
			t.Fatal(err)
		}
	}

	prior, err := repo.PriorEntry(ctx, 1, bank, core.NewDate(2025, 5, 5))
	if err != nil || prior == nil || prior.Date.String() != "2025-05-03" {
		t.Fatalf("prior of 05-05: %+v %v", prior, err)
	}
	prior, err = repo.PriorEntry(ctx, 1, bank, core.NewDate(2025, 5, 1))
	if err != nil || prior != nil {
		t.Fatalf("expected no prior for first day: %+v %v", prior, err)
	}

	later, err := repo.EntriesAfter(ctx, 1, bank, core.NewDate(2025, 5, 1))
	if err != nil || len(later) != 2 || later[0].Entry.Date.String() != "2025-05-03" {
		t.Fatalf("entries after: %+v %v", later, err)
	}

	banks, err := repo.BanksBefore(ctx, 1, core.NewDate(2025, 5, 3))
	if err != nil || len(banks) != 1 || banks[0] != bank {
		t.Fatalf("banks before: %v %v", banks, err)
	}
	if banks, _ = repo.BanksBefore(ctx, 1, core.NewDate(2025, 5, 1)); len(banks) != 0 {
		t.Fatalf("no banks before first day: %v", banks)
	}

	day, err := repo.EntriesForDay(ctx, 1, core.NewDate(2025, 5, 3))
	if err != nil || len(day) != 1 || day[0].Entry.BankName != bank {
		t.Fatalf("entries for day: %+v %v", day, err)
	}
}

func TestPendingSyncAndMarkSynced(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := core.BankLedgerEntry{
		BankName:       "Prabhu Bank",
		Date:           core.NewDate(2025, 5, 1),
		OpeningBalance: decimal.Zero,
		DepositsToday:  d("10"),
	}
	if _, _, err := repo.UpsertEntry(ctx, 9, e); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %+v %v", pending, err)
	}
	p := pending[0]
	if p.UserID != 9 || p.Bank != "Prabhu Bank" || p.Version != 1 || p.Day.String() != "2025-05-01" {
		t.Fatalf("unexpected pending: %+v", p)
	}

	if err := repo.MarkSynced(ctx, p.UserID, p.Bank, p.Day, p.Version); err != nil {
		t.Fatal(err)
	}
	if pending, _ = repo.PendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected nothing pending: %+v", pending)
	}

	// An older version acknowledged late must not regress.
	e.DepositsToday = d("20")
	if _, _, err := repo.UpsertEntry(ctx, 9, e); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkSynced(ctx, 9, "Prabhu Bank", e.Date, 1); err != nil {
		t.Fatal(err)
	}
	if pending, _ = repo.PendingSync(ctx, 10); len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("version 2 should still be pending: %+v", pending)
	}
}

func TestPing(t *testing.T) {
	if err := newTestRepo(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
