package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpValidationError     = "validation_failed"
	HttpEventNotFoundError  = "event_not_found"
	HttpCapacityError       = "insufficient_capacity"
	HttpPaymentError        = "insufficient_payment"
	HttpUnauthorizedError   = "unauthorized"
	HttpMissingAccountError = "missing_account"
)

// ErrorResponse is the error response body for ledger API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
