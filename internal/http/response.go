package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"stripbot/internal/core"
	"stripbot/internal/services"
	"stripbot/internal/session"
)

type valueJSON struct {
	Kind         core.Kind `json:"kind"`
	RawText      string    `json:"raw_text"`
	Value        string    `json:"value"`
	DisplayValue string    `json:"display_value"`
	Currency     string    `json:"currency,omitempty"`
	MessageIndex int       `json:"message_index"`
}

type summaryJSON struct {
	AmountCount  int    `json:"amount_count"`
	AmountSum    string `json:"amount_sum"`
	ChargeCount  int    `json:"charge_count"`
	ChargeSum    string `json:"charge_sum"`
	TotalCount   int    `json:"total_count"`
	Total        string `json:"total"`
	DecimalCount int    `json:"decimal_count"`
	WholeCount   int    `json:"whole_count"`
}

type reportJSON struct {
	UserID   int64       `json:"user_id"`
	Messages int         `json:"messages"`
	Summary  summaryJSON `json:"summary"`
	Values   []valueJSON `json:"values,omitempty"`
	Issues   []string    `json:"issues,omitempty"`
}

type ledgerJSON struct {
	UserID  int64            `json:"user_id"`
	Date    string           `json:"date"`
	Entries []core.LedgerRow `json:"entries"`
}

type entryJSON struct {
	core.LedgerRow
	OverLimit bool `json:"over_limit"`
}

func newValuesJSON(values []core.ClassifiedValue, includeCurrency bool) []valueJSON {
	out := make([]valueJSON, len(values))
	for i, v := range values {
		out[i] = valueJSON{
			Kind:         v.Kind,
			RawText:      v.RawText,
			Value:        v.ValueText(),
			DisplayValue: v.DisplayText(includeCurrency),
			Currency:     v.Currency,
			MessageIndex: v.MessageIndex,
		}
	}
	return out
}

func newSummaryJSON(s core.Summary) summaryJSON {
	return summaryJSON{
		AmountCount:  s.AmountCount,
		AmountSum:    s.AmountSum.String(),
		ChargeCount:  s.ChargeCount,
		ChargeSum:    s.ChargeSum.String(),
		TotalCount:   s.TotalCount,
		Total:        s.Total.String(),
		DecimalCount: s.DecimalCount,
		WholeCount:   s.WholeCount,
	}
}

func newReportJSON(r services.Report, withValues bool) reportJSON {
	out := reportJSON{
		UserID:   r.UserID,
		Messages: r.Messages,
		Summary:  newSummaryJSON(r.Summary),
	}
	if withValues {
		out.Values = newValuesJSON(r.Batch, r.Preferences.IncludeCurrency)
	}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, issue.Err.Error())
	}
	return out
}

func newEntryJSON(e core.BankLedgerEntry) entryJSON {
	return entryJSON{LedgerRow: e.Row(), OverLimit: e.OverLimit()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"message": msg,
			"type":    kind,
		},
	})
}

// writeServiceError maps service errors onto statuses. It reports whether
// the error was unexpected.
func writeServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, session.ErrNoMessages):
		writeError(w, http.StatusConflict, "no_messages", "no messages collected, forward some first")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return true
	}
	return false
}
