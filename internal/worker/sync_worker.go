package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stripbot/internal/amqp"
	"stripbot/internal/core"
	"stripbot/internal/metrics"
	"stripbot/internal/sheets"
	"stripbot/internal/storage"
)

// Store is the part of the ledger repository the worker needs.
type Store interface {
	GetEntry(ctx context.Context, userID int64, bank string, day core.Date) (storage.LedgerRecord, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, userID int64, bank string, day core.Date, version int64) error
}

// SyncWorker exports ledger entries from SQLite to Google Sheets
type SyncWorker struct {
	storage   Store
	sheets    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(storage Store, sheets sheets.LedgerWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single ledger sync message from AMQP. A
// message older than the stored entry is skipped: the newer version has its
// own message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing ledger sync message",
		"user_id", msg.UserID,
		"bank", msg.Bank,
		"date", msg.Day,
		"version", msg.Version)

	day, err := core.ParseDate(msg.Day)
	if err != nil {
		// Requeueing cannot fix a bad date.
		slog.ErrorContext(ctx, "Dropping sync message with invalid date",
			"date", msg.Day, "error", err)
		metrics.SyncResults.WithLabelValues(metrics.SyncFailed).Inc()
		return nil
	}

	rec, err := w.storage.GetEntry(ctx, msg.UserID, msg.Bank, day)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Ledger entry not found, skipping",
			"user_id", msg.UserID, "bank", msg.Bank, "date", msg.Day)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get ledger entry: %w", err)
	}

	if msg.Version < rec.Version || rec.SyncedVersion >= rec.Version {
		slog.DebugContext(ctx, "Skipping stale ledger sync message",
			"message_version", msg.Version,
			"stored_version", rec.Version,
			"synced_version", rec.SyncedVersion)
		metrics.SyncResults.WithLabelValues(metrics.SyncStale).Inc()
		return nil
	}

	if err := w.export(ctx, []storage.LedgerRecord{rec}); err != nil {
		return fmt.Errorf("sync ledger entry to sheets: %w", err)
	}
	return nil
}

// ProcessPending exports up to batchSize entries whose latest version has
// not reached the sheet. This is a backup mechanism in case AMQP messages
// are lost. It returns the number of entries exported.
func (w *SyncWorker) ProcessPending(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = w.batchSize
	}
	pending, err := w.storage.PendingSync(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending ledger entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending ledger entries", "count", len(pending))

	records := make([]storage.LedgerRecord, 0, len(pending))
	for _, p := range pending {
		rec, err := w.storage.GetEntry(ctx, p.UserID, p.Bank, p.Day)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get ledger entry",
				"user_id", p.UserID, "bank", p.Bank, "date", p.Day.String(), "error", err)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := w.export(ctx, records); err != nil {
		return 0, fmt.Errorf("sync pending ledger entries: %w", err)
	}
	return len(records), nil
}

// StartupSyncCheck exports pending entries at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	n, err := w.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "No pending ledger entries found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", n)
	return nil
}

// export appends the records in one call and marks each one synced.
func (w *SyncWorker) export(ctx context.Context, records []storage.LedgerRecord) error {
	rows := make([]sheets.LedgerExportRow, len(records))
	for i, rec := range records {
		rows[i] = sheets.LedgerExportRow{
			UserID:  rec.UserID,
			Version: rec.Version,
			Row:     rec.Entry.Row(),
		}
	}

	ref, err := w.sheets.AppendLedgerRows(ctx, rows)
	if err != nil {
		metrics.SyncResults.WithLabelValues(metrics.SyncFailed).Add(float64(len(records)))
		return fmt.Errorf("append to sheets: %w", err)
	}

	errorCount := 0
	for _, rec := range records {
		if err := w.storage.MarkSynced(ctx, rec.UserID, rec.Entry.BankName, rec.Entry.Date, rec.Version); err != nil {
			// The row is in the sheet; a later pass may append it again.
			slog.ErrorContext(ctx, "Failed to mark ledger entry as synced",
				"user_id", rec.UserID, "bank", rec.Entry.BankName, "error", err)
			errorCount++
			continue
		}
		metrics.SyncResults.WithLabelValues(metrics.SyncSynced).Inc()
	}

	slog.InfoContext(ctx, "Synced ledger entries to sheets",
		"sheets_ref", ref,
		"total", len(records),
		"errors", errorCount)
	return nil
}
