package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stripbot/internal/cache"
	"stripbot/internal/core"
	"stripbot/internal/metrics"
	"stripbot/internal/session"
)

const (
	catalogCacheSize = 1024
	catalogCacheTTL  = 5 * time.Minute
)

// LedgerService records deposits and limits per bank and keeps the daily
// ledger entries consistent with them.
type LedgerService struct {
	store     LedgerStore
	publisher SyncPublisher
	sessions  Sessions
	catalog   *core.BankCatalog
	scanner   *core.Scanner
	loc       *time.Location
	now       func() time.Time

	// Per-user catalogs including custom banks, dropped on AddCustomBank.
	catalogs *cache.LRUCache[int64, *core.BankCatalog]

	// Serializes recomputation so two cascades of one bank never interleave.
	mu sync.Mutex
}

// NewLedgerService wires the service. publisher may be nil, in which case
// entries are only picked up by the periodic sync.
func NewLedgerService(store LedgerStore, publisher SyncPublisher, sessions Sessions, catalog *core.BankCatalog, scanner *core.Scanner, loc *time.Location) *LedgerService {
	if catalog == nil {
		catalog = core.DefaultBankCatalog()
	}
	if scanner == nil {
		scanner = core.DefaultScanner()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		sessions:  sessions,
		catalog:   catalog,
		scanner:   scanner,
		loc:       loc,
		now:       time.Now,
		catalogs:  cache.NewLRUCache[int64, *core.BankCatalog](catalogCacheSize, catalogCacheTTL),
	}
}

// Today is the current calendar day in the ledger time zone.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

// RecordDeposit stores a deposit typed by the user and returns the bank's
// recomputed entry for day. A zero day means today. Invalid input fails with
// a *core.ValidationError before anything is written.
func (s *LedgerService) RecordDeposit(ctx context.Context, userID int64, bankName, amountText string, day core.Date) (core.BankLedgerEntry, error) {
	return s.recordDeposit(ctx, userID, bankName, day, s.typed(amountText))
}

// RecordDepositNumber is RecordDeposit for an amount received as a number,
// which is read as plain decimal notation without separator resolution.
func (s *LedgerService) RecordDepositNumber(ctx context.Context, userID int64, bankName, number string, day core.Date) (core.BankLedgerEntry, error) {
	return s.recordDeposit(ctx, userID, bankName, day, numeric(number))
}

// SetLimit stores the bank's limit for day and returns the recomputed entry.
func (s *LedgerService) SetLimit(ctx context.Context, userID int64, bankName, limitText string, day core.Date) (core.BankLedgerEntry, error) {
	return s.setLimit(ctx, userID, bankName, day, s.typed(limitText))
}

func (s *LedgerService) SetLimitNumber(ctx context.Context, userID int64, bankName, number string, day core.Date) (core.BankLedgerEntry, error) {
	return s.setLimit(ctx, userID, bankName, day, numeric(number))
}

func (s *LedgerService) recordDeposit(ctx context.Context, userID int64, bankName string, day core.Date, parse amountParser) (core.BankLedgerEntry, error) {
	day = s.dayOrToday(day)
	bank, amount, err := s.validate(userID, bankName, "deposit", parse)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.AddDeposit(ctx, userID, bank, day, amount); err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("record deposit: %w", err)
	}
	metrics.LedgerDeposits.Inc()

	entry, err := s.recompute(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}
	slog.InfoContext(ctx, "Deposit recorded",
		"user_id", userID,
		"bank", bank,
		"date", day.String(),
		"amount", amount.String())
	return entry, nil
}

func (s *LedgerService) setLimit(ctx context.Context, userID int64, bankName string, day core.Date, parse amountParser) (core.BankLedgerEntry, error) {
	day = s.dayOrToday(day)
	bank, limit, err := s.validate(userID, bankName, "limit", parse)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetLimit(ctx, userID, bank, day, limit); err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("set limit: %w", err)
	}

	entry, err := s.recompute(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}
	slog.InfoContext(ctx, "Limit set",
		"user_id", userID,
		"bank", bank,
		"date", day.String(),
		"limit", limit.String())
	return entry, nil
}

// Ledger returns one entry per bank the user has activity for, as of day.
// Banks without a stored entry that day show the carried-forward state.
func (s *LedgerService) Ledger(ctx context.Context, userID int64, day core.Date) ([]core.BankLedgerEntry, error) {
	day = s.dayOrToday(day)

	records, err := s.store.EntriesForDay(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	seen := make(map[string]bool, len(records))
	entries := make([]core.BankLedgerEntry, 0, len(records))
	for _, rec := range records {
		seen[rec.Entry.BankName] = true
		entries = append(entries, rec.Entry)
	}

	earlier, err := s.store.BanksBefore(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("load ledger banks: %w", err)
	}
	catalog := s.catalogFor(userID)
	for _, bank := range earlier {
		if seen[bank] {
			continue
		}
		entry, err := s.compute(ctx, catalog, userID, bank, day)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BankName < entries[j].BankName
	})
	return entries, nil
}

// Banks lists the catalog banks followed by the user's own.
func (s *LedgerService) Banks(userID int64) []string {
	return s.catalogFor(userID).Names()
}

// AddCustomBank makes name selectable for the user. A name the catalog
// already knows resolves to its canonical form and is not added again.
func (s *LedgerService) AddCustomBank(ctx context.Context, userID int64, name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		metrics.LedgerValidationErrors.WithLabelValues("bank").Inc()
		return "", &core.ValidationError{Field: "bank", Value: name, Err: core.ErrUnknownBank}
	}
	if canonical, ok := s.catalogFor(userID).Lookup(name); ok {
		return canonical, nil
	}
	if err := s.sessions.Update(userID, func(sess *session.Session) error {
		sess.AddCustomBank(name)
		return nil
	}); err != nil {
		return "", fmt.Errorf("add bank: %w", err)
	}
	s.catalogs.Delete(userID)
	slog.InfoContext(ctx, "Custom bank added", "user_id", userID, "bank", name)
	return name, nil
}

// amountParser reads the amount of field from one kind of input.
type amountParser func(field string) (decimal.Decimal, error)

func (s *LedgerService) typed(text string) amountParser {
	return func(field string) (decimal.Decimal, error) {
		return core.ParseAmountInput(s.scanner, field, text)
	}
}

func numeric(number string) amountParser {
	return func(field string) (decimal.Decimal, error) {
		return core.ParseAmountNumber(field, number)
	}
}

func (s *LedgerService) validate(userID int64, bankName, field string, parse amountParser) (string, decimal.Decimal, error) {
	bank, err := s.catalogFor(userID).Resolve(bankName)
	if err != nil {
		metrics.LedgerValidationErrors.WithLabelValues("bank").Inc()
		return "", decimal.Decimal{}, err
	}
	v, err := parse(field)
	if err != nil {
		metrics.LedgerValidationErrors.WithLabelValues(field).Inc()
		return "", decimal.Decimal{}, err
	}
	return bank, v, nil
}

// recompute rebuilds the entry of day and then every later entry of the bank
// in date order, so each one sees its freshly stored predecessor.
func (s *LedgerService) recompute(ctx context.Context, userID int64, bank string, day core.Date) (core.BankLedgerEntry, error) {
	catalog := s.catalogFor(userID)

	entry, err := s.computeAndStore(ctx, catalog, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}

	later, err := s.store.EntriesAfter(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("load later entries: %w", err)
	}
	for _, rec := range later {
		if _, err := s.computeAndStore(ctx, catalog, userID, bank, rec.Entry.Date); err != nil {
			return core.BankLedgerEntry{}, err
		}
	}
	if len(later) > 0 {
		slog.DebugContext(ctx, "Carried forward",
			"user_id", userID, "bank", bank, "from", day.String(), "entries", len(later))
	}
	return entry, nil
}

func (s *LedgerService) computeAndStore(ctx context.Context, catalog *core.BankCatalog, userID int64, bank string, day core.Date) (core.BankLedgerEntry, error) {
	entry, err := s.compute(ctx, catalog, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, err
	}

	version, changed, err := s.store.UpsertEntry(ctx, userID, entry)
	if err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("store entry: %w", err)
	}
	if changed {
		if err := s.publishSync(ctx, userID, entry, version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger sync",
				"user_id", userID, "bank", bank, "date", day.String(), "version", version, "error", err)
			// The periodic sync picks the entry up later.
		}
	}
	return entry, nil
}

func (s *LedgerService) compute(ctx context.Context, catalog *core.BankCatalog, userID int64, bank string, day core.Date) (core.BankLedgerEntry, error) {
	deposits, err := s.store.DepositsFor(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("load deposits: %w", err)
	}
	limit, err := s.store.LimitFor(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("load limit: %w", err)
	}
	prior, err := s.store.PriorEntry(ctx, userID, bank, day)
	if err != nil {
		return core.BankLedgerEntry{}, fmt.Errorf("load prior entry: %w", err)
	}

	// Stored banks stay valid after a restart drops the session's own banks.
	entry, _, err := core.ComputeLedger(catalog.WithCustom(bank), s.scanner, core.LedgerInput{
		BankName: bank,
		Date:     day,
		Amounts:  deposits,
		Limit:    limit,
		Prior:    prior,
	})
	if err != nil {
		return core.BankLedgerEntry{}, err
	}
	return entry, nil
}

func (s *LedgerService) publishSync(ctx context.Context, userID int64, e core.BankLedgerEntry, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger sync message")
		return nil
	}
	return s.publisher.PublishLedgerSync(ctx, userID, e.BankName, e.Date.String(), version)
}

func (s *LedgerService) catalogFor(userID int64) *core.BankCatalog {
	if s.sessions == nil {
		return s.catalog
	}
	if c, ok := s.catalogs.Get(userID); ok {
		return c
	}
	c := s.catalog.WithCustom(s.sessions.Get(userID).CustomBanks...)
	s.catalogs.Set(userID, c)
	return c
}

func (s *LedgerService) dayOrToday(day core.Date) core.Date {
	if day.IsZero() {
		return s.Today()
	}
	return day
}
