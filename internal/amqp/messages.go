package amqp

import (
	"encoding/json"
	"time"
)

// ReceiptExportMessage is a lightweight notification that a receipt needs to
// be exported to the bookkeeping sheet. It carries only the ID and version;
// the worker fetches the full receipt from the database.
type ReceiptExportMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReceiptExportMessage creates a new export message with just ID and version
func NewReceiptExportMessage(id, version int64) *ReceiptExportMessage {
	return &ReceiptExportMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReceiptExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReceiptExportMessageFromJSON creates a message from JSON bytes
func ReceiptExportMessageFromJSON(data []byte) (*ReceiptExportMessage, error) {
	var msg ReceiptExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
