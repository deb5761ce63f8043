package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	httperr "github.com/bookline-labs/bookline/internal/core/errors"
	coreledger "github.com/bookline-labs/bookline/internal/core/ledger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// accountHeader carries the caller's platform account address. There is no
// separate authentication: the caller's identity IS the authorization token,
// and the organizer check is a direct equality comparison against it.
const accountHeader = "X-Account-ID"

// RegisterRoutes registers the ledger API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.HandleCreateEvent)
	r.GET("/v1/events", s.HandleListEvents)
	r.GET("/v1/events/next-id", s.HandleNextEventID)
	r.GET("/v1/events/:id", s.HandleGetEvent)
	r.POST("/v1/events/:id/purchases", s.HandleBuyTicket)
	r.POST("/v1/events/:id/withdrawals", s.HandleWithdraw)
	r.GET("/v1/events/:id/tickets/:account", s.HandleTicketsOwned)
	r.GET("/v1/accounts/:account/tickets", s.HandleAccountTickets)
}

// CreateEventRequest is the request body for POST /v1/events.
// Date is seconds since epoch; TicketPrice is a decimal string.
type CreateEventRequest struct {
	Name        string          `json:"name"`
	Date        int64           `json:"date"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	TicketCount int64           `json:"ticket_count"`
}

// EventResponse is the public shape of one event. Past and SoldOut are
// derived at read time from the stored fields, never stored themselves.
type EventResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Date        int64  `json:"date"`
	TicketPrice string `json:"ticket_price"`
	TicketCount int64  `json:"ticket_count"`
	TicketsSold int64  `json:"tickets_sold"`
	Organizer   string `json:"organizer"`
	Past        bool   `json:"past"`
	SoldOut     bool   `json:"sold_out"`
}

func toEventResponse(ev coreledger.Event, now time.Time) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		Name:        ev.Name,
		Date:        ev.Date.Unix(),
		TicketPrice: ev.TicketPrice.String(),
		TicketCount: ev.TicketCount,
		TicketsSold: ev.TicketsSold,
		Organizer:   ev.Organizer,
		Past:        ev.Past(now),
		SoldOut:     ev.SoldOut(),
	}
}

// HandleCreateEvent handles POST /v1/events.
func (s *Service) HandleCreateEvent(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	ev, err := s.CreateEvent(c.Request.Context(), CreateEventInput{
		Name:        req.Name,
		Date:        time.Unix(req.Date, 0).UTC(),
		TicketPrice: req.TicketPrice,
		TicketCount: req.TicketCount,
		Organizer:   account,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEventResponse(ev, s.Now()))
}

// HandleListEvents handles GET /v1/events.
func (s *Service) HandleListEvents(c *gin.Context) {
	events, err := s.ListEvents(c.Request.Context())
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	now := s.Now()
	responses := make([]EventResponse, len(events))
	for i, ev := range events {
		responses[i] = toEventResponse(ev, now)
	}
	c.JSON(http.StatusOK, gin.H{"events": responses})
}

// HandleGetEvent handles GET /v1/events/:id.
func (s *Service) HandleGetEvent(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	ev, err := s.GetEvent(c.Request.Context(), id)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(ev, s.Now()))
}

// HandleNextEventID handles GET /v1/events/next-id.
func (s *Service) HandleNextEventID(c *gin.Context) {
	next, err := s.NextEventID(c.Request.Context())
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_event_id": next})
}

// BuyTicketRequest is the request body for POST /v1/events/:id/purchases.
// Payment is the value attached to the call and must exactly equal
// ticket price times quantity.
type BuyTicketRequest struct {
	Quantity int64           `json:"quantity"`
	Payment  decimal.Decimal `json:"payment"`
}

// PurchaseResponse confirms a purchase.
type PurchaseResponse struct {
	EventID      int64  `json:"event_id"`
	Account      string `json:"account"`
	Quantity     int64  `json:"quantity"`
	Payment      string `json:"payment"`
	TicketsOwned int64  `json:"tickets_owned"`
}

// HandleBuyTicket handles POST /v1/events/:id/purchases.
func (s *Service) HandleBuyTicket(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req BuyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	purchase, err := s.BuyTicket(c.Request.Context(), BuyTicketInput{
		EventID:  id,
		Account:  account,
		Quantity: req.Quantity,
		Payment:  req.Payment,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PurchaseResponse{
		EventID:      purchase.EventID,
		Account:      purchase.Account,
		Quantity:     purchase.Quantity,
		Payment:      purchase.Payment.String(),
		TicketsOwned: purchase.TicketsOwned,
	})
}

// WithdrawalResponse reports the amount transferred to the organizer.
type WithdrawalResponse struct {
	WithdrawalID string `json:"withdrawal_id"`
	EventID      int64  `json:"event_id"`
	Amount       string `json:"amount"`
}

// HandleWithdraw handles POST /v1/events/:id/withdrawals.
func (s *Service) HandleWithdraw(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	w, err := s.Withdraw(c.Request.Context(), WithdrawInput{EventID: id, Account: account})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, WithdrawalResponse{
		WithdrawalID: w.ID,
		EventID:      w.EventID,
		Amount:       w.Amount.String(),
	})
}

// HandleTicketsOwned handles GET /v1/events/:id/tickets/:account.
func (s *Service) HandleTicketsOwned(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}
	account := c.Param("account")

	owned, err := s.TicketsOwned(c.Request.Context(), id, account)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_id":      id,
		"account":       account,
		"tickets_owned": owned,
	})
}

// AccountTicketResponse is one entry of the "my tickets" listing.
type AccountTicketResponse struct {
	Event    EventResponse `json:"event"`
	Quantity int64         `json:"quantity"`
}

// HandleAccountTickets handles GET /v1/accounts/:account/tickets.
func (s *Service) HandleAccountTickets(c *gin.Context) {
	account := c.Param("account")

	tickets, err := s.AccountTickets(c.Request.Context(), account)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	now := s.Now()
	responses := make([]AccountTicketResponse, len(tickets))
	for i, t := range tickets {
		responses[i] = AccountTicketResponse{
			Event:    toEventResponse(t.Event, now),
			Quantity: t.Quantity,
		}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": responses})
}

// callerAccount extracts the caller identity header or writes a 400.
func callerAccount(c *gin.Context) (string, bool) {
	account := c.GetHeader(accountHeader)
	if account == "" {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpMissingAccountError,
			Message:   accountHeader + " header is required",
		})
		return "", false
	}
	return account, true
}

// eventIDParam parses the :id path parameter or writes a 400.
func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "event id must be a non-negative integer",
		})
		return 0, false
	}
	return id, true
}

// writeLedgerError maps domain errors onto HTTP statuses. Failures surface
// verbatim; the API never retries or recovers on the caller's behalf.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coreledger.ErrEventNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpEventNotFoundError,
			Message:   err.Error(),
		})
	case errors.Is(err, coreledger.ErrInsufficientCapacity):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpCapacityError,
			Message:   err.Error(),
		})
	case errors.Is(err, coreledger.ErrInsufficientPayment):
		c.JSON(http.StatusPaymentRequired, httperr.ErrorResponse{
			ErrorType: httperr.HttpPaymentError,
			Message:   err.Error(),
		})
	case errors.Is(err, coreledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnauthorizedError,
			Message:   err.Error(),
		})
	case errors.Is(err, coreledger.ErrNameRequired),
		errors.Is(err, coreledger.ErrNegativePrice),
		errors.Is(err, coreledger.ErrInvalidTicketCount),
		errors.Is(err, coreledger.ErrInvalidQuantity),
		errors.Is(err, coreledger.ErrAccountRequired):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   err.Error(),
		})
	default:
		slog.Error("Ledger operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Internal error",
		})
	}
}
