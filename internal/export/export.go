// Package export renders classified values and ledger rows as CSV and JSON
// documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stripbot/internal/core"
)

type Format string

const (
	FormatCSV         Format = "csv"
	FormatJSON        Format = "json"
	FormatColumns     Format = "columns"      // legacy Amounts/Charges/Row Sum CSV
	FormatColumnsJSON Format = "columns-json" // legacy Amounts/Charges/Total Sum JSON
)

// ParseFormat returns the format named by s; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatColumns, FormatColumnsJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext is the file extension for documents in format f.
func (f Format) Ext() string {
	if f == FormatJSON || f == FormatColumnsJSON {
		return "json"
	}
	return "csv"
}

// ContentType is the MIME type for documents in format f.
func (f Format) ContentType() string {
	if f.Ext() == "json" {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds a download name such as stripbot_export_42_20250501_101500.csv.
func FileName(kind string, userID int64, at time.Time, f Format) string {
	return fmt.Sprintf("stripbot_%s_%d_%s.%s", kind, userID, at.Format("20060102_150405"), f.Ext())
}

var lineItemHeader = []string{"date", "bank_name", "kind", "raw_text", "value", "display_value"}

func WriteLineItemsCSV(w io.Writer, items []core.LineItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(lineItemHeader); err != nil {
		return err
	}
	for _, it := range items {
		rec := []string{it.Date, it.BankName, it.Kind.String(), it.RawText, it.Value, it.DisplayValue}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteLineItemsJSON(w io.Writer, items []core.LineItem) error {
	if items == nil {
		items = []core.LineItem{}
	}
	return writeJSON(w, items)
}

var ledgerHeader = []string{"bank_name", "date", "opening_balance", "deposits_today", "limit", "remaining"}

// WriteLedgerCSV writes ledger rows; an absent limit or remaining is an
// empty cell.
func WriteLedgerCSV(w io.Writer, rows []core.LedgerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.BankName, r.Date, r.OpeningBalance, r.DepositsToday, deref(r.Limit), deref(r.Remaining)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteLedgerJSON(w io.Writer, rows []core.LedgerRow) error {
	if rows == nil {
		rows = []core.LedgerRow{}
	}
	return writeJSON(w, rows)
}

// Columns is the legacy two-list layout: Amounts and Charges side by side.
type Columns struct {
	Amounts      []string
	Charges      []string
	amountValues []decimal.Decimal
	chargeValues []decimal.Decimal
}

// NewColumns splits b into display strings. Amounts contribute their
// truncated value to sums, Charges their exact value.
func NewColumns(b core.Batch, includeCurrency bool) Columns {
	var c Columns
	for _, v := range b {
		switch v.Kind {
		case core.KindAmount:
			c.Amounts = append(c.Amounts, v.DisplayText(includeCurrency))
			c.amountValues = append(c.amountValues, v.DisplayValue)
		case core.KindCharge:
			c.Charges = append(c.Charges, v.DisplayText(includeCurrency))
			c.chargeValues = append(c.chargeValues, v.DisplayValue)
		}
	}
	return c
}

// Rows returns max(len(Amounts), len(Charges)).
func (c Columns) Rows() int {
	return max(len(c.Amounts), len(c.Charges))
}

// RowSum adds the i-th amount and the i-th charge, whichever exist.
func (c Columns) RowSum(i int) decimal.Decimal {
	sum := decimal.Zero
	if i < len(c.amountValues) {
		sum = sum.Add(c.amountValues[i])
	}
	if i < len(c.chargeValues) {
		sum = sum.Add(c.chargeValues[i])
	}
	return sum
}

func (c Columns) Total() decimal.Decimal {
	sum := decimal.Zero
	for i := 0; i < c.Rows(); i++ {
		sum = sum.Add(c.RowSum(i))
	}
	return sum
}

// WriteColumnsCSV writes the Amounts, Charges, Row Sum layout.
func WriteColumnsCSV(w io.Writer, c Columns) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Amounts", "Charges", "Row Sum"}); err != nil {
		return err
	}
	for i := 0; i < c.Rows(); i++ {
		var amount, charge string
		if i < len(c.Amounts) {
			amount = c.Amounts[i]
		}
		if i < len(c.Charges) {
			charge = c.Charges[i]
		}
		if err := cw.Write([]string{amount, charge, c.RowSum(i).String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type columnsDoc struct {
	Amounts  []string    `json:"Amounts"`
	Charges  []string    `json:"Charges"`
	TotalSum json.Number `json:"Total Sum"`
}

// WriteColumnsJSON writes {"Amounts": [...], "Charges": [...], "Total Sum": n}.
func WriteColumnsJSON(w io.Writer, c Columns) error {
	doc := columnsDoc{
		Amounts:  c.Amounts,
		Charges:  c.Charges,
		TotalSum: json.Number(c.Total().String()),
	}
	if doc.Amounts == nil {
		doc.Amounts = []string{}
	}
	if doc.Charges == nil {
		doc.Charges = []string{}
	}
	return writeJSON(w, doc)
}

// WriteBatch renders b in format f. Line items are dated date.
func WriteBatch(w io.Writer, f Format, date core.Date, b core.Batch, includeCurrency bool) error {
	switch f {
	case FormatCSV:
		return WriteLineItemsCSV(w, core.LineItems(date, "", b))
	case FormatJSON:
		return WriteLineItemsJSON(w, core.LineItems(date, "", b))
	case FormatColumns:
		return WriteColumnsCSV(w, NewColumns(b, includeCurrency))
	case FormatColumnsJSON:
		return WriteColumnsJSON(w, NewColumns(b, includeCurrency))
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteLedger renders ledger rows as CSV or JSON.
func WriteLedger(w io.Writer, f Format, rows []core.LedgerRow) error {
	switch f {
	case FormatCSV:
		return WriteLedgerCSV(w, rows)
	case FormatJSON:
		return WriteLedgerJSON(w, rows)
	}
	return fmt.Errorf("format %q not supported for ledger export", f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
