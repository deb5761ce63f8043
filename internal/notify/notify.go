package notify

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicEventCreated    = "bookline.event.created"
	TopicTicketPurchased = "bookline.ticket.purchased"
	TopicFundsWithdrawn  = "bookline.funds.withdrawn"
)

// EventCreated is published when an organizer creates an event.
// Front ends use it to refresh listings.
type EventCreated struct {
	EventID     int64     `json:"event_id"`
	Name        string    `json:"name"`
	Date        int64     `json:"date"`
	TicketPrice string    `json:"ticket_price"`
	TicketCount int64     `json:"ticket_count"`
	Organizer   string    `json:"organizer"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketPurchased is published after a successful purchase.
type TicketPurchased struct {
	EventID     int64  `json:"event_id"`
	Account     string `json:"account"`
	Quantity    int64  `json:"quantity"`
	Payment     string `json:"payment"`
	TicketsSold int64  `json:"tickets_sold"`
}

// FundsWithdrawn is published after an organizer withdraws proceeds.
type FundsWithdrawn struct {
	WithdrawalID string `json:"withdrawal_id"`
	EventID      int64  `json:"event_id"`
	Organizer    string `json:"organizer"`
	Amount       string `json:"amount"`
}

// Publisher is the interface for emitting ledger notifications.
// Publishing is best-effort: a failure is logged by the caller and never
// fails the ledger operation that triggered it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
