package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
)

// EventAction is the kind of change a TransactionEvent describes.
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionUpdated EventAction = "updated"
	ActionDeleted EventAction = "deleted"
)

func (a EventAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// TransactionEvent announces a committed transaction change. It carries the
// row snapshot so consumers never need database access.
type TransactionEvent struct {
	EventID     string           `json:"event_id"`
	Action      EventAction      `json:"action"`
	ID          int64            `json:"id"`
	Version     int64            `json:"version"`
	Transaction core.Transaction `json:"transacao"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewTransactionEvent stamps a new event for t at the given row version.
func NewTransactionEvent(action EventAction, t core.Transaction, version int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:     uuid.NewString(),
		Action:      action,
		ID:          t.ID,
		Version:     version,
		Transaction: t,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Action.Valid() {
		return nil, fmt.Errorf("unknown event action %q", e.Action)
	}
	if e.ID <= 0 {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &e, nil
}
