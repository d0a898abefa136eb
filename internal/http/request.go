package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"stripbot/internal/core"
)

const maxBodyBytes = 64 << 10

// amountInput accepts a JSON string or number. Strings are read like a chat
// entry, separators and currency included; numbers are plain decimals.
type amountInput struct {
	Text   string
	Number bool
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput{Text: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = amountInput{Text: n.String(), Number: true}
	return nil
}

type collectRequest struct {
	Text      string `json:"text"`
	MessageID int    `json:"message_id"`
}

type depositRequest struct {
	Bank   string      `json:"bank"`
	Amount amountInput `json:"amount"`
	Date   string      `json:"date"`
}

type limitRequest struct {
	Bank  string      `json:"bank"`
	Limit amountInput `json:"limit"`
	Date  string      `json:"date"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// optionalDate parses YYYY-MM-DD; empty means the zero date, which the
// services read as today.
func optionalDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}
