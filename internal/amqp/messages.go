package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finwell/internal/core"
)

// EventType names a change to the transaction ledger.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

// TransactionEvent announces a ledger change. It carries only the id and
// the affected month; consumers read the rows back from storage.
type TransactionEvent struct {
	Event     EventType `json:"event"`
	ID        int64     `json:"id"`
	Month     string    `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(event EventType, id int64, month core.Month, now time.Time) TransactionEvent {
	return TransactionEvent{
		Event:     event,
		ID:        id,
		Month:     month.String(),
		Timestamp: now.UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParsedMonth returns the month the event refers to.
func (e TransactionEvent) ParsedMonth() (core.Month, error) {
	return core.ParseMonth(e.Month)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TransactionEvent{}, err
	}
	switch ev.Event {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return TransactionEvent{}, fmt.Errorf("unknown event type %q", ev.Event)
	}
	if _, err := ev.ParsedMonth(); err != nil {
		return TransactionEvent{}, err
	}
	return ev, nil
}
