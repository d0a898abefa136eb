// Package session keeps the per-user collection state of the bot: the
// forwarded messages, the values classified so far, display preferences
// and user-defined banks.
package session

import (
	"errors"
	"strings"
	"time"

	"stripbot/internal/core"
)

// ErrNoMessages is returned when an operation needs collected messages.
var ErrNoMessages = errors.New("no messages collected")

type OutputFormat string

const (
	FormatSimple   OutputFormat = "simple"
	FormatDetailed OutputFormat = "detailed"
)

// ParseOutputFormat accepts "simple" or "detailed", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSimple:
		return FormatSimple, true
	case FormatDetailed:
		return FormatDetailed, true
	}
	return "", false
}

type Preferences struct {
	IncludeCurrency  bool         `json:"include_currency"`
	OutputFormat     OutputFormat `json:"output_format"`
	SilentCollection bool         `json:"silent_collection"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		IncludeCurrency:  false,
		OutputFormat:     FormatSimple,
		SilentCollection: true,
	}
}

// Session is one user's state. Batch always holds the classified values of
// Messages in message order.
type Session struct {
	UserID      int64
	Collecting  bool
	Messages    []core.RawMessage
	Batch       core.Batch
	Issues      []core.TokenIssue
	Preferences Preferences
	CustomBanks []string
	StartedAt   time.Time
	UpdatedAt   time.Time
}

func newSession(userID int64, now time.Time) *Session {
	return &Session{
		UserID:      userID,
		Preferences: DefaultPreferences(),
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Reset drops collected messages and values, keeping preferences and banks.
func (s *Session) Reset() {
	s.Messages = nil
	s.Batch = nil
	s.Issues = nil
}

// AddCustomBank records name unless an equal name (ignoring case) exists.
// It reports whether the list changed.
func (s *Session) AddCustomBank(name string) bool {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return false
	}
	for _, b := range s.CustomBanks {
		if strings.EqualFold(b, name) {
			return false
		}
	}
	s.CustomBanks = append(s.CustomBanks, name)
	return true
}

// clone returns a copy that shares no slices with s.
func (s *Session) clone() Session {
	c := *s
	c.Messages = append([]core.RawMessage(nil), s.Messages...)
	c.Batch = append(core.Batch(nil), s.Batch...)
	c.Issues = append([]core.TokenIssue(nil), s.Issues...)
	c.CustomBanks = append([]string(nil), s.CustomBanks...)
	return c
}
