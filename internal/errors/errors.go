package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput         ErrorCode = "invalid_input"
	ValidationFailed     ErrorCode = "validation_error"
	InvalidAmount        ErrorCode = "invalid_amount"
	InvalidType          ErrorCode = "invalid_type"
	InvalidAccountID     ErrorCode = "invalid_account_id"
	InvalidTransactionID ErrorCode = "invalid_transaction_id"
	InvalidBudgetID      ErrorCode = "invalid_budget_id"
	Unauthorized         ErrorCode = "unauthorized"
	AccountNotFound      ErrorCode = "account_not_found"
	TransactionNotFound  ErrorCode = "transaction_not_found"
	CategoryNotFound     ErrorCode = "category_not_found"
	BudgetNotFound       ErrorCode = "budget_not_found"
	BudgetExists         ErrorCode = "budget_exists"
	InvariantViolation   ErrorCode = "invariant_violation"
	ConcurrencyConflict  ErrorCode = "concurrency_conflict"
	InternalError        ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	status int
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *AppError with the same code, so that
// errors.Is matches predefined values even after WithDetails copies them.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details. Predefined errors are
// shared, so they are never mutated in place.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithStatus returns a copy of e that reports status instead of the
// default status for its code.
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.status = status
	return &cp
}

func (e *AppError) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}

	switch e.Code {
	case InvalidInput, InvalidAccountID, InvalidTransactionID, InvalidBudgetID:
		return http.StatusBadRequest
	case ValidationFailed, InvalidAmount, InvalidType, CategoryNotFound, BudgetExists:
		return http.StatusUnprocessableEntity
	case Unauthorized:
		return http.StatusUnauthorized
	case AccountNotFound, TransactionNotFound, BudgetNotFound:
		return http.StatusNotFound
	case ConcurrencyConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsServerError reports whether the error must be hidden from clients.
func (e *AppError) IsServerError() bool {
	return e.HTTPStatus() >= http.StatusInternalServerError
}

// AsAppError unwraps err into an *AppError, wrapping unknown errors as
// internal errors.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

// Predefined errors for common cases
var (
	ErrInvalidInput         = NewAppError(InvalidInput, "invalid request body")
	ErrInvalidAmount        = NewAppError(InvalidAmount, "amount must be greater than zero")
	ErrInvalidType          = NewAppError(InvalidType, "type must be income or expense")
	ErrInvalidAccountID     = NewAppError(InvalidAccountID, "invalid account id")
	ErrInvalidTransactionID = NewAppError(InvalidTransactionID, "invalid transaction id")
	ErrInvalidBudgetID      = NewAppError(InvalidBudgetID, "invalid budget id")
	ErrUnauthorized         = NewAppError(Unauthorized, "missing or invalid owner identity")
	ErrAccountNotFound      = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound  = NewAppError(TransactionNotFound, "transaction not found")
	ErrCategoryNotFound     = NewAppError(CategoryNotFound, "category not found")
	ErrBudgetNotFound       = NewAppError(BudgetNotFound, "budget not found")
	ErrBudgetExists         = NewAppError(BudgetExists, "budget already exists for this category and month")
	ErrInvariantViolation   = NewAppError(InvariantViolation, "ledger invariant violated")
	ErrConcurrencyConflict  = NewAppError(ConcurrencyConflict, "account is busy, retry the request")
	ErrInternal             = NewAppError(InternalError, "an unexpected error occurred")
)
