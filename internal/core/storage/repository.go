package storage

import (
	"context"

	"github.com/bookline-labs/bookline/internal/core/ledger"
	"github.com/shopspring/decimal"
)

// LedgerStore is the persistence boundary of the ticket ledger.
//
// The reference execution environment serializes every state-mutating call.
// Implementations reproduce that guarantee through WithTx: all mutations for
// one ledger operation run inside a single transaction, and GetEventForUpdate
// locks the event row so the buy-ticket capacity check can never interleave
// with a concurrent purchase.
type LedgerStore interface {
	// WithTx runs fn inside a transaction. The transaction is carried in the
	// context handed to fn; nested calls join the enclosing transaction.
	// fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// AllocateEventID claims the next dense event id, starting at 0.
	// Must be called inside WithTx so an aborted creation does not burn an id.
	AllocateEventID(ctx context.Context) (int64, error)

	// InsertEvent appends a new event at the id previously allocated.
	InsertEvent(ctx context.Context, ev *ledger.Event) error

	// GetEvent fetches one event by id.
	// Returns ledger.ErrEventNotFound if the id was never assigned.
	GetEvent(ctx context.Context, id int64) (ledger.Event, error)

	// GetEventForUpdate fetches one event by id and locks it for the duration
	// of the enclosing transaction.
	GetEventForUpdate(ctx context.Context, id int64) (ledger.Event, error)

	// ListEvents returns all events in id order.
	ListEvents(ctx context.Context) ([]ledger.Event, error)

	// NextEventID returns the id the next created event will receive,
	// equivalently the total number of events.
	NextEventID(ctx context.Context) (int64, error)

	// ApplyPurchase records a successful purchase: tickets_sold and the
	// buyer's holding grow by quantity, the event balance grows by payment.
	// Capacity and payment checks happen in the service before this call,
	// under the row lock taken by GetEventForUpdate.
	ApplyPurchase(ctx context.Context, eventID int64, account string, quantity int64, payment decimal.Decimal) error

	// TicketsOwned returns the ticket count one account holds for one event.
	// An account with no purchases holds zero; this is not an error.
	TicketsOwned(ctx context.Context, eventID int64, account string) (int64, error)

	// AccountHoldings returns every non-zero holding of one account,
	// in event id order.
	AccountHoldings(ctx context.Context, account string) ([]ledger.Holding, error)

	// SettleBalance zeroes the event's balance and records the withdrawal.
	// Must run inside the transaction that read the balance under lock.
	SettleBalance(ctx context.Context, w ledger.Withdrawal) error
}
