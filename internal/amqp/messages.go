package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage notifies collaborators (dashboards, the notification
// service) that balance sheets changed. It carries only identifiers; the
// consumer reads the current state back through the API.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	Months    []string  `json:"months"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates a new ledger event message
func NewLedgerEventMessage(kind, recordID string, months []string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		RecordID:  recordID,
		Months:    months,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
