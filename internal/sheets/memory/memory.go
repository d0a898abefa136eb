package memory

import (
	"context"
	"fmt"
	"sync"

	ports "stripbot/internal/sheets"
)

// Writer keeps appended ledger rows in memory. It stands in for Google
// Sheets in local runs and tests.
type Writer struct {
	mu    sync.Mutex
	rows  []ports.LedgerExportRow
	fails int // number of upcoming appends to fail
}

var _ ports.LedgerWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// AppendLedgerRows stores the rows and returns a synthetic range reference.
func (w *Writer) AppendLedgerRows(_ context.Context, rows []ports.LedgerExportRow) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fails > 0 {
		w.fails--
		return "", fmt.Errorf("memory writer: injected failure")
	}
	if len(rows) == 0 {
		return "", nil
	}
	first := len(w.rows) + 1
	w.rows = append(w.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []ports.LedgerExportRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ports.LedgerExportRow(nil), w.rows...)
}

// FailNext makes the next n appends return an error.
func (w *Writer) FailNext(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fails = n
}
