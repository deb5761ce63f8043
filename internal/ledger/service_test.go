package ledger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bookline-labs/bookline/internal/clock"
	coreledger "github.com/bookline-labs/bookline/internal/core/ledger"
	"github.com/bookline-labs/bookline/internal/core/storage/memory"
	"github.com/bookline-labs/bookline/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	organizer = "0xorganizer"
	buyer     = "0xbuyer"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// recordingGateway captures payout transfers and can be told to fail.
type recordingGateway struct {
	transfers []decimal.Decimal
	failWith  error
}

func (g *recordingGateway) Transfer(ctx context.Context, account string, amount decimal.Decimal) error {
	if g.failWith != nil {
		return g.failWith
	}
	g.transfers = append(g.transfers, amount)
	return nil
}

// recordingPublisher captures notification topics in publish order.
type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingGateway, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	gateway := &recordingGateway{}
	publisher := &recordingPublisher{}
	svc := NewService(store, gateway, publisher, clock.NewFixed(testNow))
	return svc, store, gateway, publisher
}

func createConcert(t *testing.T, svc *Service) coreledger.Event {
	t.Helper()
	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Name:        "Concert",
		Date:        testNow.Add(time.Hour),
		TicketPrice: decimal.RequireFromString("0.1"),
		TicketCount: 100,
		Organizer:   organizer,
	})
	require.NoError(t, err)
	return ev
}

func TestService_CreateEvent(t *testing.T) {
	svc, _, _, publisher := newTestService(t)
	ctx := context.Background()

	ev := createConcert(t, svc)
	require.Equal(t, int64(0), ev.ID)
	require.Equal(t, "Concert", ev.Name)
	require.Equal(t, int64(100), ev.TicketCount)
	require.Equal(t, int64(0), ev.TicketsSold)
	require.Equal(t, organizer, ev.Organizer)
	require.True(t, ev.Balance.IsZero())

	// Ids are dense and strictly increasing from 0.
	second, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:        "Expo",
		Date:        testNow.Add(48 * time.Hour),
		TicketPrice: decimal.Zero,
		TicketCount: 10,
		Organizer:   organizer,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), second.ID)

	next, err := svc.NextEventID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), next)

	require.Equal(t, []string{notify.TopicEventCreated, notify.TopicEventCreated}, publisher.topics)
}

func TestService_CreateEvent_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:        "",
		TicketPrice: decimal.Zero,
		TicketCount: 10,
		Organizer:   organizer,
	})
	require.ErrorIs(t, err, coreledger.ErrNameRequired)

	// A failed creation must not burn an id.
	next, err := svc.NextEventID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), next)
}

func TestService_BuyTicket(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	purchase, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 2,
		Payment:  decimal.RequireFromString("0.2"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), purchase.TicketsOwned)

	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), ev.TicketsSold)
	require.True(t, ev.Balance.Equal(decimal.RequireFromString("0.2")))

	owned, err := svc.TicketsOwned(ctx, 0, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(2), owned)
}

func TestService_BuyTicket_OwnershipMatchesTicketsSold(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	buyers := map[string]int64{"0xa": 3, "0xb": 5, "0xc": 1}
	var total int64
	for account, qty := range buyers {
		payment := decimal.RequireFromString("0.1").Mul(decimal.NewFromInt(qty))
		_, err := svc.BuyTicket(ctx, BuyTicketInput{
			EventID:  0,
			Account:  account,
			Quantity: qty,
			Payment:  payment,
		})
		require.NoError(t, err)
		total += qty
	}

	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, total, ev.TicketsSold)

	var sum int64
	for account := range buyers {
		owned, err := svc.TicketsOwned(ctx, 0, account)
		require.NoError(t, err)
		sum += owned
	}
	require.Equal(t, ev.TicketsSold, sum)
}

func TestService_BuyTicket_InsufficientCapacity(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	_, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 101,
		Payment:  decimal.RequireFromString("10.1"),
	})
	require.ErrorIs(t, err, coreledger.ErrInsufficientCapacity)

	// State unchanged after the failed call.
	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), ev.TicketsSold)
	require.True(t, ev.Balance.IsZero())
}

func TestService_BuyTicket_ExtremeQuantityCannotOversell(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	// Free event: the exact-payment check (0 * qty = 0) cannot reject an
	// oversized request, so the capacity check alone must hold the line
	// even when sold+quantity would wrap past the int64 maximum.
	_, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:        "Meetup",
		Date:        testNow.Add(time.Hour),
		TicketPrice: decimal.Zero,
		TicketCount: 10,
		Organizer:   organizer,
	})
	require.NoError(t, err)

	_, err = svc.BuyTicket(ctx, BuyTicketInput{
		EventID: 0, Account: buyer, Quantity: 1, Payment: decimal.Zero,
	})
	require.NoError(t, err)

	_, err = svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: math.MaxInt64,
		Payment:  decimal.Zero,
	})
	require.ErrorIs(t, err, coreledger.ErrInsufficientCapacity)

	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), ev.TicketsSold)
}

func TestService_BuyTicket_InsufficientPayment(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	// Underpayment: 0.05 for one 0.1 ticket.
	_, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 1,
		Payment:  decimal.RequireFromString("0.05"),
	})
	require.ErrorIs(t, err, coreledger.ErrInsufficientPayment)

	// Overpayment is rejected the same way; the ledger holds no change.
	_, err = svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 1,
		Payment:  decimal.RequireFromString("0.15"),
	})
	require.ErrorIs(t, err, coreledger.ErrInsufficientPayment)

	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), ev.TicketsSold)
}

func TestService_BuyTicket_EventNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.BuyTicket(context.Background(), BuyTicketInput{
		EventID:  7,
		Account:  buyer,
		Quantity: 1,
		Payment:  decimal.RequireFromString("0.1"),
	})
	require.ErrorIs(t, err, coreledger.ErrEventNotFound)
}

func TestService_Withdraw(t *testing.T) {
	svc, store, gateway, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	_, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 2,
		Payment:  decimal.RequireFromString("0.2"),
	})
	require.NoError(t, err)

	w, err := svc.Withdraw(ctx, WithdrawInput{EventID: 0, Account: organizer})
	require.NoError(t, err)
	require.True(t, w.Amount.Equal(decimal.RequireFromString("0.2")))
	require.NotEmpty(t, w.ID)
	require.Len(t, gateway.transfers, 1)

	// Balance zeroed: a second withdrawal cannot move the same funds again.
	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.True(t, ev.Balance.IsZero())

	again, err := svc.Withdraw(ctx, WithdrawInput{EventID: 0, Account: organizer})
	require.NoError(t, err)
	require.True(t, again.Amount.IsZero())

	require.Len(t, store.Withdrawals(), 2)
}

func TestService_Withdraw_Unauthorized(t *testing.T) {
	svc, _, gateway, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	_, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 1,
		Payment:  decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, WithdrawInput{EventID: 0, Account: buyer})
	require.ErrorIs(t, err, coreledger.ErrUnauthorized)
	require.Empty(t, gateway.transfers)

	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.True(t, ev.Balance.Equal(decimal.RequireFromString("0.1")))
}

func TestService_Withdraw_TransferFailureRollsBack(t *testing.T) {
	svc, store, gateway, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	_, err := svc.BuyTicket(ctx, BuyTicketInput{
		EventID:  0,
		Account:  buyer,
		Quantity: 2,
		Payment:  decimal.RequireFromString("0.2"),
	})
	require.NoError(t, err)

	gateway.failWith = errors.New("recipient rejected funds")
	_, err = svc.Withdraw(ctx, WithdrawInput{EventID: 0, Account: organizer})
	require.Error(t, err)

	// No partial withdrawal: balance unchanged, nothing recorded.
	ev, err := svc.GetEvent(ctx, 0)
	require.NoError(t, err)
	require.True(t, ev.Balance.Equal(decimal.RequireFromString("0.2")))
	require.Empty(t, store.Withdrawals())
}

func TestService_TicketsOwned_UnknownEvent(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.TicketsOwned(context.Background(), 3, buyer)
	require.ErrorIs(t, err, coreledger.ErrEventNotFound)
}

func TestService_AccountTickets(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	createConcert(t, svc)

	_, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:        "Expo",
		Date:        testNow.Add(48 * time.Hour),
		TicketPrice: decimal.RequireFromString("1"),
		TicketCount: 50,
		Organizer:   organizer,
	})
	require.NoError(t, err)

	_, err = svc.BuyTicket(ctx, BuyTicketInput{
		EventID: 0, Account: buyer, Quantity: 2, Payment: decimal.RequireFromString("0.2"),
	})
	require.NoError(t, err)
	_, err = svc.BuyTicket(ctx, BuyTicketInput{
		EventID: 1, Account: buyer, Quantity: 1, Payment: decimal.RequireFromString("1"),
	})
	require.NoError(t, err)

	tickets, err := svc.AccountTickets(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.Equal(t, "Concert", tickets[0].Event.Name)
	require.Equal(t, int64(2), tickets[0].Quantity)
	require.Equal(t, "Expo", tickets[1].Event.Name)
	require.Equal(t, int64(1), tickets[1].Quantity)
}
