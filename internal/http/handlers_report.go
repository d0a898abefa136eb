package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"stripbot/internal/core"
	"stripbot/internal/export"
	applog "stripbot/internal/log"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	sess := s.reports.Start(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    userID,
		"collecting": sess.Collecting,
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	var req collectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	res, err := s.reports.Collect(r.Context(), userID, core.RawMessage{
		Text:       req.Text,
		MessageID:  req.MessageID,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		s.fail(w, r, err, applog.ComponentReport, applog.OpCollect, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message_count": res.MessageCount,
		"values":        newValuesJSON(res.Values, res.Preferences.IncludeCurrency),
		"issues":        len(res.Issues),
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	report, err := s.reports.Process(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, applog.ComponentReport, applog.OpProcess, userID)
		return
	}
	s.access.LogBatchProcessed(r.Context(), userID, report.Messages,
		report.Summary.AmountCount, report.Summary.ChargeCount, len(report.Issues))
	writeJSON(w, http.StatusOK, newReportJSON(report, true))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	report, err := s.reports.Stats(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, applog.ComponentReport, applog.OpProcess, userID)
		return
	}
	writeJSON(w, http.StatusOK, newReportJSON(report, false))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	s.reports.Clear(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	date, err := optionalDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if date.IsZero() {
		date = s.today()
	}

	// Render fully before writing so a failure still yields a clean error.
	var buf bytes.Buffer
	name, err := s.reports.Export(r.Context(), userID, f, date, &buf)
	if err != nil {
		s.fail(w, r, err, applog.ComponentReport, applog.OpExport, userID)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleBanks(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("user"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", fmt.Sprintf("invalid user %q", raw))
			return
		}
		userID = id
	}
	writeJSON(w, http.StatusOK, map[string]any{"banks": s.ledger.Banks(userID)})
}

// fail writes err and logs it when it is not a client error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, component, op string, userID int64) {
	if writeServiceError(w, err) {
		s.access.LogError(r.Context(), "Request failed", err, component, op, applog.NewFields().WithUser(userID))
	}
}

func (s *Server) today() core.Date {
	if s.ledger != nil {
		return s.ledger.Today()
	}
	return core.DateOf(time.Now())
}
