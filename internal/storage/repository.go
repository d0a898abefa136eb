package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"stripbot/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a ledger entry does not exist.
var ErrNotFound = errors.New("ledger entry not found")

// LedgerRecord is a stored ledger entry with its sync bookkeeping.
type LedgerRecord struct {
	UserID        int64
	Entry         core.BankLedgerEntry
	Version       int64
	SyncedVersion int64
	UpdatedAt     time.Time
}

// PendingSync identifies an entry whose latest version is not exported yet.
type PendingSync struct {
	UserID  int64
	Bank    string
	Day     core.Date
	Version int64
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddDeposit stores one deposit and returns its id.
func (r *SQLiteRepository) AddDeposit(ctx context.Context, userID int64, bank string, day core.Date, amount decimal.Decimal) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO deposits (user_id, bank, day, amount) VALUES (?, ?, ?, ?)`,
		userID, bank, day.String(), amount.String())
	if err != nil {
		return 0, fmt.Errorf("insert deposit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("deposit id: %w", err)
	}
	slog.DebugContext(ctx, "Deposit saved to SQLite",
		"id", id,
		"user_id", userID,
		"bank", bank,
		"day", day.String(),
		"amount", amount.String())
	return id, nil
}

// DepositsFor returns the deposits of one bank and day in insertion order.
func (r *SQLiteRepository) DepositsFor(ctx context.Context, userID int64, bank string, day core.Date) ([]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM deposits WHERE user_id = ? AND bank = ? AND day = ? ORDER BY id`,
		userID, bank, day.String())
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var d decimal.Decimal
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetLimit records the limit explicitly supplied for one bank and day.
func (r *SQLiteRepository) SetLimit(ctx context.Context, userID int64, bank string, day core.Date, amount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO limits (user_id, bank, day, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, bank, day) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
		userID, bank, day.String(), amount.String())
	if err != nil {
		return fmt.Errorf("upsert limit: %w", err)
	}
	return nil
}

// LimitFor returns the limit supplied for exactly that day, if any.
func (r *SQLiteRepository) LimitFor(ctx context.Context, userID int64, bank string, day core.Date) (decimal.NullDecimal, error) {
	var l decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM limits WHERE user_id = ? AND bank = ? AND day = ?`,
		userID, bank, day.String()).Scan(&l)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("query limit: %w", err)
	}
	return l, nil
}

// UpsertEntry stores e and returns its version. The version is bumped only
// when a stored value changes; changed reports whether that happened.
func (r *SQLiteRepository) UpsertEntry(ctx context.Context, userID int64, e core.BankLedgerEntry) (version int64, changed bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (user_id, bank, day, opening_balance, deposits_today, limit_amount, remaining)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, bank, day) DO UPDATE SET
			opening_balance = excluded.opening_balance,
			deposits_today  = excluded.deposits_today,
			limit_amount    = excluded.limit_amount,
			remaining       = excluded.remaining,
			version         = ledger_entries.version + 1,
			updated_at      = CURRENT_TIMESTAMP
		WHERE ledger_entries.opening_balance IS NOT excluded.opening_balance
		   OR ledger_entries.deposits_today IS NOT excluded.deposits_today
		   OR ledger_entries.limit_amount IS NOT excluded.limit_amount
		   OR ledger_entries.remaining IS NOT excluded.remaining
		RETURNING version`,
		userID, e.BankName, e.Date.String(),
		e.OpeningBalance.String(), e.DepositsToday.String(),
		nullText(e.Limit), nullText(e.Remaining),
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict with identical values: nothing updated, nothing returned.
		rec, gerr := r.GetEntry(ctx, userID, e.BankName, e.Date)
		if gerr != nil {
			return 0, false, gerr
		}
		return rec.Version, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("upsert ledger entry: %w", err)
	}
	return version, true, nil
}

const entryColumns = `user_id, bank, day, opening_balance, deposits_today, limit_amount, remaining, version, synced_version, updated_at`

// GetEntry returns one stored entry or ErrNotFound.
func (r *SQLiteRepository) GetEntry(ctx context.Context, userID int64, bank string, day core.Date) (LedgerRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = ? AND bank = ? AND day = ?`,
		userID, bank, day.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return LedgerRecord{}, ErrNotFound
	}
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return rec, nil
}

// PriorEntry returns the latest entry of bank strictly before day, or nil
// when the bank has no earlier entry.
func (r *SQLiteRepository) PriorEntry(ctx context.Context, userID int64, bank string, day core.Date) (*core.BankLedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE user_id = ? AND bank = ? AND day < ?
		 ORDER BY day DESC LIMIT 1`,
		userID, bank, day.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prior ledger entry: %w", err)
	}
	return &rec.Entry, nil
}

// EntriesAfter returns the entries of bank strictly after day, oldest first.
func (r *SQLiteRepository) EntriesAfter(ctx context.Context, userID int64, bank string, day core.Date) ([]LedgerRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE user_id = ? AND bank = ? AND day > ?
		 ORDER BY day`,
		userID, bank, day.String())
}

// EntriesForDay returns every bank's entry for day, ordered by bank.
func (r *SQLiteRepository) EntriesForDay(ctx context.Context, userID int64, day core.Date) ([]LedgerRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE user_id = ? AND day = ?
		 ORDER BY bank`,
		userID, day.String())
}

// BanksBefore lists the banks with at least one entry strictly before day.
func (r *SQLiteRepository) BanksBefore(ctx context.Context, userID int64, day core.Date) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT bank FROM ledger_entries WHERE user_id = ? AND day < ? ORDER BY bank`,
		userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("query banks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// PendingSync lists entries whose latest version has not been exported.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, bank, day, version FROM ledger_entries
		 WHERE synced_version < version
		 ORDER BY updated_at, day
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p   PendingSync
			day string
		)
		if err := rows.Scan(&p.UserID, &p.Bank, &day, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		if p.Day, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records that version of the entry was exported. Older
// versions never move synced_version backwards.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, userID int64, bank string, day core.Date, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET synced_version = MAX(synced_version, ?)
		 WHERE user_id = ? AND bank = ? AND day = ?`,
		version, userID, bank, day.String())
	if err != nil {
		return fmt.Errorf("mark ledger entry synced: %w", err)
	}
	slog.DebugContext(ctx, "Ledger entry marked as synced",
		"user_id", userID, "bank", bank, "day", day.String(), "version", version)
	return nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (LedgerRecord, error) {
	var (
		rec     LedgerRecord
		day     string
		updated any
	)
	err := s.Scan(
		&rec.UserID, &rec.Entry.BankName, &day,
		&rec.Entry.OpeningBalance, &rec.Entry.DepositsToday,
		&rec.Entry.Limit, &rec.Entry.Remaining,
		&rec.Version, &rec.SyncedVersion, &updated,
	)
	if err != nil {
		return LedgerRecord{}, err
	}
	if rec.Entry.Date, err = core.ParseDate(day); err != nil {
		return LedgerRecord{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	rec.UpdatedAt = parseTimestamp(updated)
	return rec, nil
}

// parseTimestamp accepts what the driver returns for DATETIME columns.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

func nullText(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
