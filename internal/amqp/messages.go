package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger change kinds.
const (
	ChangeAppend = "append"
	ChangeDelete = "delete"
	ChangeResync = "resync"
)

// LedgerChangedMessage announces a committed mutation of the ledger.
// It carries identifiers only; consumers re-read the ledger for content.
type LedgerChangedMessage struct {
	ID        uuid.UUID `json:"id"`
	Op        string    `json:"op"`
	Count     int       `json:"count"`
	TxIDs     []int64   `json:"tx_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(op string, txIDs []int64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ID:        uuid.New(),
		Op:        op,
		Count:     len(txIDs),
		TxIDs:     txIDs,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, errors.New("message id is missing")
	}
	switch msg.Op {
	case ChangeAppend, ChangeDelete, ChangeResync:
	default:
		return nil, fmt.Errorf("unknown ledger change %q", msg.Op)
	}
	return &msg, nil
}
