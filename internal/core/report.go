package core

// LineItem is the export shape of one classified value.
type LineItem struct {
	Date         string `json:"date"`
	BankName     string `json:"bank_name,omitempty"`
	Kind         Kind   `json:"kind"`
	RawText      string `json:"raw_text"`
	Value        string `json:"value"`
	DisplayValue string `json:"display_value"`
}

// LedgerRow is the export shape of a ledger entry. Limit and Remaining are
// nil when no limit was ever set.
type LedgerRow struct {
	BankName       string  `json:"bank_name"`
	Date           string  `json:"date"`
	OpeningBalance string  `json:"opening_balance"`
	DepositsToday  string  `json:"deposits_today"`
	Limit          *string `json:"limit,omitempty"`
	Remaining      *string `json:"remaining,omitempty"`
}

// LineItems converts a batch into export records dated date.
func LineItems(date Date, bankName string, b Batch) []LineItem {
	items := make([]LineItem, len(b))
	for i, v := range b {
		items[i] = LineItem{
			Date:         date.String(),
			BankName:     bankName,
			Kind:         v.Kind,
			RawText:      v.RawText,
			Value:        v.ValueText(),
			DisplayValue: v.DisplayText(false),
		}
	}
	return items
}

// Row converts the entry into its export record.
func (e BankLedgerEntry) Row() LedgerRow {
	row := LedgerRow{
		BankName:       e.BankName,
		Date:           e.Date.String(),
		OpeningBalance: e.OpeningBalance.String(),
		DepositsToday:  e.DepositsToday.String(),
	}
	if e.Limit.Valid {
		s := e.Limit.Decimal.String()
		row.Limit = &s
	}
	if e.Remaining.Valid {
		s := e.Remaining.Decimal.String()
		row.Remaining = &s
	}
	return row
}

// LedgerRows converts entries in order.
func LedgerRows(entries []BankLedgerEntry) []LedgerRow {
	rows := make([]LedgerRow, len(entries))
	for i, e := range entries {
		rows[i] = e.Row()
	}
	return rows
}
