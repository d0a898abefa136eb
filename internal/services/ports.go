package services

import (
	"context"

	"github.com/shopspring/decimal"

	"stripbot/internal/core"
	"stripbot/internal/session"
	"stripbot/internal/storage"
)

// Sessions is the per-user state the services read and mutate.
type Sessions interface {
	Get(userID int64) session.Session
	Update(userID int64, fn func(*session.Session) error) error
	Delete(userID int64)
}

// LedgerStore persists deposits, limits and computed ledger entries.
type LedgerStore interface {
	AddDeposit(ctx context.Context, userID int64, bank string, day core.Date, amount decimal.Decimal) (int64, error)
	DepositsFor(ctx context.Context, userID int64, bank string, day core.Date) ([]decimal.Decimal, error)
	SetLimit(ctx context.Context, userID int64, bank string, day core.Date, amount decimal.Decimal) error
	LimitFor(ctx context.Context, userID int64, bank string, day core.Date) (decimal.NullDecimal, error)
	UpsertEntry(ctx context.Context, userID int64, e core.BankLedgerEntry) (version int64, changed bool, err error)
	PriorEntry(ctx context.Context, userID int64, bank string, day core.Date) (*core.BankLedgerEntry, error)
	EntriesAfter(ctx context.Context, userID int64, bank string, day core.Date) ([]storage.LedgerRecord, error)
	EntriesForDay(ctx context.Context, userID int64, day core.Date) ([]storage.LedgerRecord, error)
	BanksBefore(ctx context.Context, userID int64, day core.Date) ([]string, error)
}

// SyncPublisher announces ledger entry versions that need exporting.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, userID int64, bank, day string, version int64) error
}

var (
	_ Sessions    = (*session.Store)(nil)
	_ LedgerStore = (*storage.SQLiteRepository)(nil)
)
