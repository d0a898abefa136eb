package memory

import (
	"context"
	"testing"

	"stripbot/internal/core"
	ports "stripbot/internal/sheets"
)

func TestWriterAppend(t *testing.T) {
	w := New()
	rows := []ports.LedgerExportRow{
		{UserID: 1, Version: 1, Row: core.LedgerRow{BankName: "Nabil Bank", Date: "2025-05-01"}},
		{UserID: 1, Version: 1, Row: core.LedgerRow{BankName: "Everest Bank", Date: "2025-05-01"}},
	}
	ref, err := w.AppendLedgerRows(context.Background(), rows)
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = w.AppendLedgerRows(context.Background(), rows[:1])
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected second append: ref=%q err=%v", ref, err)
	}
	if got := w.Rows(); len(got) != 3 || got[2].Row.BankName != "Nabil Bank" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestWriterFailNext(t *testing.T) {
	w := New()
	w.FailNext(1)
	if _, err := w.AppendLedgerRows(context.Background(), []ports.LedgerExportRow{{UserID: 1}}); err == nil {
		t.Fatal("expected injected failure")
	}
	if _, err := w.AppendLedgerRows(context.Background(), []ports.LedgerExportRow{{UserID: 1}}); err != nil {
		t.Fatalf("second append should succeed: %v", err)
	}
	if len(w.Rows()) != 1 {
		t.Fatalf("failed append must not store rows")
	}
}

func TestValuesLayout(t *testing.T) {
	rem := "-20"
	vals := ports.Values([]ports.LedgerExportRow{{
		UserID:  5,
		Version: 3,
		Row:     core.LedgerRow{BankName: "B", Date: "2025-05-01", OpeningBalance: "0", DepositsToday: "120", Remaining: &rem},
	}})
	if len(vals) != 1 || len(vals[0]) != len(ports.Header) {
		t.Fatalf("unexpected shape: %v", vals)
	}
	if vals[0][4] != "" || vals[0][5] != "-20" || vals[0][6] != int64(5) {
		t.Fatalf("unexpected values: %v", vals[0])
	}
}
