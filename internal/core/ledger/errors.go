package ledger

import "errors"

// Operation failures. Every failed call leaves ledger state untouched.
var (
	// ErrEventNotFound is returned when a referenced event id does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrInsufficientCapacity is returned when a purchase would push
	// tickets sold past the event's capacity.
	ErrInsufficientCapacity = errors.New("insufficient ticket capacity")

	// ErrInsufficientPayment is returned when the attached payment does not
	// exactly equal ticket price times quantity. Overpayment is rejected the
	// same way; the ledger never holds change.
	ErrInsufficientPayment = errors.New("payment must equal ticket price times quantity")

	// ErrUnauthorized is returned when a withdrawal is attempted by any
	// account other than the event's organizer.
	ErrUnauthorized = errors.New("only the organizer may withdraw proceeds")
)

// Input validation failures.
var (
	ErrNameRequired       = errors.New("event name is required")
	ErrNegativePrice      = errors.New("ticket price must not be negative")
	ErrInvalidTicketCount = errors.New("ticket count must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrAccountRequired    = errors.New("account is required")
)
