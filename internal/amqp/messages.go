package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action says what happened to a transaction.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// MonthLayout formats the month a change falls into.
const MonthLayout = "2006-01"

// TransactionChangedEvent tells consumers a user's month needs re-analysis.
// It carries no amounts; consumers reload from storage.
type TransactionChangedEvent struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"userId"`
	TransactionID int64     `json:"transactionId"`
	Action        Action    `json:"action"`
	Month         string    `json:"month"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionChangedEvent(userID, transactionID int64, action Action, date time.Time) *TransactionChangedEvent {
	return &TransactionChangedEvent{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: transactionID,
		Action:        action,
		Month:         date.Format(MonthLayout),
		Timestamp:     time.Now(),
	}
}

// MonthStart returns the first instant of the event's month in UTC.
func (e *TransactionChangedEvent) MonthStart() (time.Time, error) {
	t, err := time.Parse(MonthLayout, e.Month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", e.Month, err)
	}
	return t, nil
}

func (e *TransactionChangedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionChangedEventFromJSON decodes and validates an event body.
func TransactionChangedEventFromJSON(data []byte) (*TransactionChangedEvent, error) {
	var evt TransactionChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if evt.UserID <= 0 {
		return nil, errors.New("event without user id")
	}
	if _, err := evt.MonthStart(); err != nil {
		return nil, err
	}
	return &evt, nil
}
