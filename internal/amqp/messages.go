package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestMessage carries one forwarded chat message to the collector.
type IngestMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewIngestMessage stamps a forwarded message with an id and the current time.
func NewIngestMessage(userID, chatID int64, messageID int, text string) *IngestMessage {
	return &IngestMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *IngestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func IngestMessageFromJSON(data []byte) (*IngestMessage, error) {
	var msg IngestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LedgerSyncMessage names a ledger entry version to export. The worker
// loads the entry itself, so the message stays small.
type LedgerSyncMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Bank      string    `json:"bank"`
	Day       string    `json:"day"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(userID int64, bank, day string, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Bank:      bank,
		Day:       day,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
