package sheets

import (
	"context"

	"stripbot/internal/core"
)

// LedgerExportRow is one ledger entry version destined for a spreadsheet.
type LedgerExportRow struct {
	UserID  int64
	Version int64
	Row     core.LedgerRow
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends ledger rows to an external sheet and returns a
	// reference to the written range.
	LedgerWriter interface {
		AppendLedgerRows(ctx context.Context, rows []LedgerExportRow) (ref string, err error)
	}
)

// Header is the column layout written by every LedgerWriter.
var Header = []string{"Date", "Bank", "Opening", "Deposits", "Limit", "Remaining", "User", "Version"}

// Values renders rows in Header order. Absent limit and remaining are
// empty cells.
func Values(rows []LedgerExportRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.Row.Date,
			r.Row.BankName,
			r.Row.OpeningBalance,
			r.Row.DepositsToday,
			optional(r.Row.Limit),
			optional(r.Row.Remaining),
			r.UserID,
			r.Version,
		}
	}
	return out
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
