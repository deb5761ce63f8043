package memory

import (
	"context"
	"sync"

	"github.com/bookline-labs/bookline/internal/core/ledger"
	"github.com/shopspring/decimal"
)

type holdingKey struct {
	eventID int64
	account string
}

// Store is an in-memory implementation of storage.LedgerStore.
// Useful for testing and development (database.type: memory).
//
// One mutex guards all state. That serializes every ledger operation the
// same way the reference execution environment does, so WithTx only has to
// provide rollback, not isolation.
type Store struct {
	mu       sync.Mutex
	events   []ledger.Event
	holdings map[holdingKey]int64

	withdrawals []ledger.Withdrawal
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		holdings: make(map[holdingKey]int64),
	}
}

// WithTx serializes fn against all other operations and restores the prior
// state if fn fails, giving the all-or-nothing guarantee of a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type txKey struct{}

type state struct {
	events      []ledger.Event
	holdings    map[holdingKey]int64
	withdrawals []ledger.Withdrawal
}

func (s *Store) snapshot() state {
	events := make([]ledger.Event, len(s.events))
	copy(events, s.events)
	holdings := make(map[holdingKey]int64, len(s.holdings))
	for k, v := range s.holdings {
		holdings[k] = v
	}
	withdrawals := make([]ledger.Withdrawal, len(s.withdrawals))
	copy(withdrawals, s.withdrawals)
	return state{events: events, holdings: holdings, withdrawals: withdrawals}
}

func (s *Store) restore(st state) {
	s.events = st.events
	s.holdings = st.holdings
	s.withdrawals = st.withdrawals
}

// lock acquires the store mutex unless the caller already holds it through
// an enclosing WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) AllocateEventID(ctx context.Context) (int64, error) {
	defer s.lock(ctx)()
	return int64(len(s.events)), nil
}

func (s *Store) NextEventID(ctx context.Context) (int64, error) {
	defer s.lock(ctx)()
	return int64(len(s.events)), nil
}

func (s *Store) InsertEvent(ctx context.Context, ev *ledger.Event) error {
	defer s.lock(ctx)()
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (ledger.Event, error) {
	defer s.lock(ctx)()
	return s.getEvent(id)
}

// GetEventForUpdate behaves like GetEvent; the store-wide mutex already
// excludes concurrent writers.
func (s *Store) GetEventForUpdate(ctx context.Context, id int64) (ledger.Event, error) {
	defer s.lock(ctx)()
	return s.getEvent(id)
}

func (s *Store) getEvent(id int64) (ledger.Event, error) {
	if id < 0 || id >= int64(len(s.events)) {
		return ledger.Event{}, ledger.ErrEventNotFound
	}
	return s.events[id], nil
}

func (s *Store) ListEvents(ctx context.Context) ([]ledger.Event, error) {
	defer s.lock(ctx)()
	events := make([]ledger.Event, len(s.events))
	copy(events, s.events)
	return events, nil
}

func (s *Store) ApplyPurchase(ctx context.Context, eventID int64, account string, quantity int64, payment decimal.Decimal) error {
	defer s.lock(ctx)()
	if eventID < 0 || eventID >= int64(len(s.events)) {
		return ledger.ErrEventNotFound
	}
	ev := &s.events[eventID]
	ev.TicketsSold += quantity
	ev.Balance = ev.Balance.Add(payment)
	s.holdings[holdingKey{eventID: eventID, account: account}] += quantity
	return nil
}

func (s *Store) TicketsOwned(ctx context.Context, eventID int64, account string) (int64, error) {
	defer s.lock(ctx)()
	return s.holdings[holdingKey{eventID: eventID, account: account}], nil
}

func (s *Store) AccountHoldings(ctx context.Context, account string) ([]ledger.Holding, error) {
	defer s.lock(ctx)()
	var holdings []ledger.Holding
	for id := int64(0); id < int64(len(s.events)); id++ {
		qty := s.holdings[holdingKey{eventID: id, account: account}]
		if qty > 0 {
			holdings = append(holdings, ledger.Holding{EventID: id, Account: account, Quantity: qty})
		}
	}
	return holdings, nil
}

func (s *Store) SettleBalance(ctx context.Context, w ledger.Withdrawal) error {
	defer s.lock(ctx)()
	if w.EventID < 0 || w.EventID >= int64(len(s.events)) {
		return ledger.ErrEventNotFound
	}
	s.events[w.EventID].Balance = decimal.Zero
	s.withdrawals = append(s.withdrawals, w)
	return nil
}

// Withdrawals returns the recorded withdrawals in order. Test helper.
func (s *Store) Withdrawals() []ledger.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Withdrawal, len(s.withdrawals))
	copy(out, s.withdrawals)
	return out
}
