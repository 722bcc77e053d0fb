package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budget/internal/core"
)

// RowsAppendedMessage announces rows stored locally that still need to be
// copied to Google Sheets. It carries only IDs; the worker reads the rows
// from the database.
type RowsAppendedMessage struct {
	Table     core.Table `json:"table"`
	IDs       []int64    `json:"ids"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRowsAppendedMessage(table core.Table, ids []int64) *RowsAppendedMessage {
	return &RowsAppendedMessage{
		Table:     table,
		IDs:       ids,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RowsAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RowsAppendedMessageFromJSON decodes and validates a message.
func RowsAppendedMessageFromJSON(data []byte) (*RowsAppendedMessage, error) {
	var msg RowsAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Table.Valid() {
		return nil, fmt.Errorf("unknown table %q", msg.Table)
	}
	return &msg, nil
}
