package postgres

// SQL for ticket ledger storage. Event ids come from a single-row counter
// table updated inside the creation transaction, which keeps ids dense and
// in creation order even when a creation aborts.

const (
	// queryAllocateEventID claims the next dense id and advances the counter.
	// The UPDATE takes a row lock, so concurrent creations serialize here.
	queryAllocateEventID = `
		UPDATE ledger_counter
		SET next_event_id = next_event_id + 1
		RETURNING next_event_id - 1
	`

	queryNextEventID = `
		SELECT next_event_id FROM ledger_counter
	`

	queryInsertEvent = `
		INSERT INTO events (
			id, name, date, ticket_price, ticket_count,
			tickets_sold, organizer, balance, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	queryGetEvent = `
		SELECT id, name, date, ticket_price, ticket_count,
		       tickets_sold, organizer, balance, created_at
		FROM events
		WHERE id = $1
	`

	// queryGetEventForUpdate locks the event row for the enclosing
	// transaction. The buy-ticket capacity check and the withdraw balance
	// read both run under this lock.
	queryGetEventForUpdate = queryGetEvent + ` FOR UPDATE`

	queryListEvents = `
		SELECT id, name, date, ticket_price, ticket_count,
		       tickets_sold, organizer, balance, created_at
		FROM events
		ORDER BY id ASC
	`

	querySellTickets = `
		UPDATE events
		SET tickets_sold = tickets_sold + $2, balance = balance + $3
		WHERE id = $1
	`

	queryUpsertHolding = `
		INSERT INTO holdings (event_id, account, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, account)
		DO UPDATE SET quantity = holdings.quantity + EXCLUDED.quantity
	`

	queryTicketsOwned = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM holdings
		WHERE event_id = $1 AND account = $2
	`

	queryAccountHoldings = `
		SELECT event_id, account, quantity
		FROM holdings
		WHERE account = $1 AND quantity > 0
		ORDER BY event_id ASC
	`

	queryZeroBalance = `
		UPDATE events
		SET balance = 0
		WHERE id = $1
	`

	queryInsertWithdrawal = `
		INSERT INTO withdrawals (id, event_id, organizer, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
)
