package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookline-labs/bookline/internal/clock"
	coreledger "github.com/bookline-labs/bookline/internal/core/ledger"
	"github.com/bookline-labs/bookline/internal/core/storage"
	"github.com/bookline-labs/bookline/internal/notify"
	"github.com/bookline-labs/bookline/internal/payout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service implements the ticket ledger operations over a LedgerStore.
//
// Every mutating operation runs inside one store transaction with the event
// row locked, which reproduces the serialized execution the ledger's
// semantics assume: no two purchases can jointly oversell capacity, and a
// failed call leaves no partial state behind.
type Service struct {
	store     storage.LedgerStore
	gateway   payout.Gateway
	publisher notify.Publisher
	clock     clock.Clock
}

func NewService(store storage.LedgerStore, gateway payout.Gateway, publisher notify.Publisher, clk clock.Clock) *Service {
	if store == nil {
		panic("ledger: store must not be nil")
	}
	if gateway == nil {
		panic("ledger: payout gateway must not be nil")
	}
	if publisher == nil {
		publisher = &notify.NoopPublisher{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		clock:     clk,
	}
}

type CreateEventInput struct {
	Name        string
	Date        time.Time
	TicketPrice decimal.Decimal
	TicketCount int64
	Organizer   string
}

// CreateEvent appends a new event at the next dense sequential id and
// returns it. The caller's identity becomes the organizer.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (coreledger.Event, error) {
	if err := coreledger.ValidateNew(in.Name, in.TicketPrice, in.TicketCount, in.Organizer); err != nil {
		return coreledger.Event{}, err
	}

	var ev coreledger.Event
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		id, err := s.store.AllocateEventID(txCtx)
		if err != nil {
			return err
		}
		ev = coreledger.Event{
			ID:          id,
			Name:        in.Name,
			Date:        in.Date,
			TicketPrice: in.TicketPrice,
			TicketCount: in.TicketCount,
			TicketsSold: 0,
			Organizer:   in.Organizer,
			Balance:     decimal.Zero,
			CreatedAt:   s.clock.Now(),
		}
		return s.store.InsertEvent(txCtx, &ev)
	})
	if err != nil {
		return coreledger.Event{}, err
	}

	slog.Info("Event created",
		"event_id", ev.ID,
		"name", ev.Name,
		"ticket_count", ev.TicketCount,
		"organizer", ev.Organizer)

	s.publish(ctx, notify.TopicEventCreated, notify.EventCreated{
		EventID:     ev.ID,
		Name:        ev.Name,
		Date:        ev.Date.Unix(),
		TicketPrice: ev.TicketPrice.String(),
		TicketCount: ev.TicketCount,
		Organizer:   ev.Organizer,
		CreatedAt:   ev.CreatedAt,
	})
	return ev, nil
}

type BuyTicketInput struct {
	EventID  int64
	Account  string
	Quantity int64
	Payment  decimal.Decimal
}

// Purchase is the confirmation of a successful BuyTicket call. Tickets are
// fungible counts, not individually identified instruments.
type Purchase struct {
	EventID      int64
	Account      string
	Quantity     int64
	Payment      decimal.Decimal
	TicketsOwned int64
}

// BuyTicket sells quantity tickets of an event to the calling account.
// The attached payment must exactly equal ticket price times quantity:
// underpayment and overpayment both fail, and a failed call changes nothing.
func (s *Service) BuyTicket(ctx context.Context, in BuyTicketInput) (Purchase, error) {
	if in.Quantity <= 0 {
		return Purchase{}, coreledger.ErrInvalidQuantity
	}
	if in.Account == "" {
		return Purchase{}, coreledger.ErrAccountRequired
	}

	var (
		result    Purchase
		soldAfter int64
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		// Row lock: the capacity check below cannot interleave with a
		// concurrent purchase of the same event.
		ev, err := s.store.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}

		// Subtraction form: tickets_sold <= ticket_count always holds, so
		// the remainder is non-negative and the comparison cannot overflow.
		if in.Quantity > ev.TicketCount-ev.TicketsSold {
			return coreledger.ErrInsufficientCapacity
		}

		due := ev.TicketPrice.Mul(decimal.NewFromInt(in.Quantity))
		if !in.Payment.Equal(due) {
			return coreledger.ErrInsufficientPayment
		}

		if err := s.store.ApplyPurchase(txCtx, in.EventID, in.Account, in.Quantity, in.Payment); err != nil {
			return err
		}

		owned, err := s.store.TicketsOwned(txCtx, in.EventID, in.Account)
		if err != nil {
			return err
		}
		soldAfter = ev.TicketsSold + in.Quantity
		result = Purchase{
			EventID:      in.EventID,
			Account:      in.Account,
			Quantity:     in.Quantity,
			Payment:      in.Payment,
			TicketsOwned: owned,
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	slog.Info("Tickets purchased",
		"event_id", result.EventID,
		"account", result.Account,
		"quantity", result.Quantity,
		"payment", result.Payment.String())

	s.publish(ctx, notify.TopicTicketPurchased, notify.TicketPurchased{
		EventID:     result.EventID,
		Account:     result.Account,
		Quantity:    result.Quantity,
		Payment:     result.Payment.String(),
		TicketsSold: soldAfter,
	})
	return result, nil
}

type WithdrawInput struct {
	EventID int64
	Account string
}

// Withdraw transfers an event's accumulated proceeds to its organizer and
// zeroes the balance, so a repeated call cannot withdraw the same funds
// twice. The payout transfer runs inside the transaction: if the recipient
// rejects the funds the balance stays untouched and nothing is recorded.
// Withdrawing a zero balance succeeds with amount 0.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (coreledger.Withdrawal, error) {
	if in.Account == "" {
		return coreledger.Withdrawal{}, coreledger.ErrAccountRequired
	}

	var w coreledger.Withdrawal
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		ev, err := s.store.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if ev.Organizer != in.Account {
			return coreledger.ErrUnauthorized
		}

		w = coreledger.Withdrawal{
			ID:        uuid.New().String(),
			EventID:   ev.ID,
			Organizer: ev.Organizer,
			Amount:    ev.Balance,
			CreatedAt: s.clock.Now(),
		}

		if err := s.gateway.Transfer(txCtx, ev.Organizer, ev.Balance); err != nil {
			return err
		}
		return s.store.SettleBalance(txCtx, w)
	})
	if err != nil {
		return coreledger.Withdrawal{}, err
	}

	slog.Info("Proceeds withdrawn",
		"withdrawal_id", w.ID,
		"event_id", w.EventID,
		"organizer", w.Organizer,
		"amount", w.Amount.String())

	s.publish(ctx, notify.TopicFundsWithdrawn, notify.FundsWithdrawn{
		WithdrawalID: w.ID,
		EventID:      w.EventID,
		Organizer:    w.Organizer,
		Amount:       w.Amount.String(),
	})
	return w, nil
}

// GetEvent fetches one event by id.
func (s *Service) GetEvent(ctx context.Context, id int64) (coreledger.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEvents returns all events in id order.
func (s *Service) ListEvents(ctx context.Context) ([]coreledger.Event, error) {
	return s.store.ListEvents(ctx)
}

// NextEventID returns the id the next created event will receive.
func (s *Service) NextEventID(ctx context.Context) (int64, error) {
	return s.store.NextEventID(ctx)
}

// TicketsOwned returns the ticket count one account holds for one event.
// The event must exist; the account need not have purchased anything.
func (s *Service) TicketsOwned(ctx context.Context, eventID int64, account string) (int64, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return s.store.TicketsOwned(ctx, eventID, account)
}

// AccountTickets returns every event the account holds tickets for, with the
// event details attached. Serves the "my tickets" view.
func (s *Service) AccountTickets(ctx context.Context, account string) ([]AccountTicket, error) {
	if account == "" {
		return nil, coreledger.ErrAccountRequired
	}
	holdings, err := s.store.AccountHoldings(ctx, account)
	if err != nil {
		return nil, err
	}
	tickets := make([]AccountTicket, 0, len(holdings))
	for _, h := range holdings {
		ev, err := s.store.GetEvent(ctx, h.EventID)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, AccountTicket{Event: ev, Quantity: h.Quantity})
	}
	return tickets, nil
}

// AccountTicket pairs an event with the number of tickets an account holds.
type AccountTicket struct {
	Event    coreledger.Event
	Quantity int64
}

// Now exposes the service clock for derived past/future classification.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("Notification publish failed", "topic", topic, "error", err)
	}
}
