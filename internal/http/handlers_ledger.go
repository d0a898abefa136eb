package http

import (
	"bytes"
	"fmt"
	"net/http"

	"stripbot/internal/core"
	"stripbot/internal/export"
	applog "stripbot/internal/log"
)

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	record := s.ledger.RecordDeposit
	if req.Amount.Number {
		record = s.ledger.RecordDepositNumber
	}
	entry, err := record(r.Context(), userID, req.Bank, req.Amount.Text, day)
	if err != nil {
		s.fail(w, r, err, applog.ComponentLedger, applog.OpDeposit, userID)
		return
	}
	s.access.LogDepositRecorded(r.Context(), userID, entry.BankName, entry.Date.String(), req.Amount.Text)
	writeJSON(w, http.StatusCreated, newEntryJSON(entry))
}

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	var req limitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	set := s.ledger.SetLimit
	if req.Limit.Number {
		set = s.ledger.SetLimitNumber
	}
	entry, err := set(r.Context(), userID, req.Bank, req.Limit.Text, day)
	if err != nil {
		s.fail(w, r, err, applog.ComponentLedger, applog.OpLimit, userID)
		return
	}
	writeJSON(w, http.StatusOK, newEntryJSON(entry))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	day, err := optionalDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if day.IsZero() {
		day = s.today()
	}

	f := export.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		if f, err = export.ParseFormat(raw); err != nil || (f != export.FormatJSON && f != export.FormatCSV) {
			writeError(w, http.StatusBadRequest, "validation", fmt.Sprintf("unsupported ledger format %q", raw))
			return
		}
	}

	entries, err := s.ledger.Ledger(r.Context(), userID, day)
	if err != nil {
		s.fail(w, r, err, applog.ComponentLedger, applog.OpExport, userID)
		return
	}
	rows := core.LedgerRows(entries)

	if f == export.FormatJSON {
		writeJSON(w, http.StatusOK, ledgerJSON{UserID: userID, Date: day.String(), Entries: rows})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, f, rows); err != nil {
		s.fail(w, r, err, applog.ComponentLedger, applog.OpExport, userID)
		return
	}
	name := export.FileName("ledger", userID, day.Time, f)
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
