// Package events notifies other systems that budgets changed. Services emit
// events without waiting; a Dispatcher forwards them to a Publisher in the
// background so a slow or unavailable broker never fails a request.
package events

import (
	"context"
	"time"
)

// Type identifies what happened. It doubles as the AMQP routing key.
type Type string

// Event types.
const (
	BudgetCreated      Type = "budget.created"
	BudgetUpdated      Type = "budget.updated"
	BudgetDeleted      Type = "budget.deleted"
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
	AllocationPosted   Type = "allocation.posted"
	PayrollPosted      Type = "payroll.posted"
	ShareAdded         Type = "share.added"
	ShareRemoved       Type = "share.removed"
)

// Event describes a change to one or more budgets.
type Event struct {
	Type           Type      `json:"type"`
	BudgetIDs      []string  `json:"budget_ids"`
	TransactionIDs []string  `json:"transaction_ids,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(t Type, userID string, budgetIDs ...string) Event {
	return Event{Type: t, UserID: userID, BudgetIDs: budgetIDs, OccurredAt: time.Now().UTC()}
}

// WithTransactions returns a copy of e referencing the given transactions.
func (e Event) WithTransactions(ids ...string) Event {
	e.TransactionIDs = append([]string(nil), ids...)
	return e
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(event Event)
}

type discard struct{}

func (discard) Emit(Event) {}

func (discard) Publish(context.Context, Event) error { return nil }

func (discard) Close() error { return nil }

// Discard drops every event. It is used when no broker is configured.
var Discard interface {
	Emitter
	Publisher
} = discard{}
