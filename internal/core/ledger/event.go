package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a bookable happening with fixed capacity and price.
// Every field except TicketsSold and Balance is immutable after creation;
// TicketsSold only grows, and only through successful purchases.
type Event struct {
	// ID is a dense sequential identifier assigned at creation, starting at 0.
	ID int64

	// Name is the display name chosen by the organizer.
	Name string

	// Date is when the event takes place. It is used only for the derived
	// past/future classification, never enforced against creation time.
	Date time.Time

	// TicketPrice is the price of a single ticket. Non-negative.
	TicketPrice decimal.Decimal

	// TicketCount is the total capacity, fixed at creation.
	TicketCount int64

	// TicketsSold is the running count of purchased tickets.
	// Invariant: TicketsSold <= TicketCount.
	TicketsSold int64

	// Organizer is the account that created the event and the only
	// account authorized to withdraw its proceeds.
	Organizer string

	// Balance is the accumulated withdrawable proceeds held by the
	// ledger on the organizer's behalf. Zeroed by a withdrawal.
	Balance decimal.Decimal

	// CreatedAt is when the ledger accepted the event.
	CreatedAt time.Time
}

// SoldOut reports whether the event has no remaining capacity.
// Derived at read time; never stored.
func (e Event) SoldOut() bool {
	return e.TicketsSold >= e.TicketCount
}

// Past reports whether the event's date has passed relative to now.
// Derived at read time; never stored.
func (e Event) Past(now time.Time) bool {
	return e.Date.Before(now)
}

// Remaining returns the number of tickets still available.
func (e Event) Remaining() int64 {
	return e.TicketCount - e.TicketsSold
}

// Holding is one account's ticket count for one event.
type Holding struct {
	EventID  int64
	Account  string
	Quantity int64
}

// Withdrawal records one transfer of an event's accumulated proceeds
// to its organizer.
type Withdrawal struct {
	ID        string
	EventID   int64
	Organizer string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// ValidateNew checks the creation inputs for a prospective event:
// non-empty name, non-negative price, positive capacity, known organizer.
func ValidateNew(name string, ticketPrice decimal.Decimal, ticketCount int64, organizer string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if ticketPrice.IsNegative() {
		return ErrNegativePrice
	}
	if ticketCount <= 0 {
		return ErrInvalidTicketCount
	}
	if strings.TrimSpace(organizer) == "" {
		return ErrAccountRequired
	}
	return nil
}
