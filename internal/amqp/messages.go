package amqp

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// TransactionEvent notifies downstream consumers that an income or
// expense record changed. Consumers fetch the full record themselves.
type TransactionEvent struct {
	Kind      string    `json:"kind"` // "income" or "expense"
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind, action, id, userID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      kind,
		Action:    action,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TripMessageEvent mirrors a persisted chat message for external
// consumers (bots, notification workers).
type TripMessageEvent struct {
	ID        string    `json:"id"`
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTripMessageEvent(id, tripID, userID, text string) *TripMessageEvent {
	return &TripMessageEvent{
		ID:        id,
		TripID:    tripID,
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *TripMessageEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TripMessageEventFromJSON(data []byte) (*TripMessageEvent, error) {
	var msg TripMessageEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
