package errors

import (
	stderrors "errors"
	"fmt"
)

// LedgerErrorCode represents standardized error codes for ledger operations
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"
	ErrCodeStorage  LedgerErrorCode = "storage_error"

	// Validation errors
	ErrCodeInvalidRequest LedgerErrorCode = "invalid_request"
	ErrCodeInvalidAddress LedgerErrorCode = "invalid_address"
	ErrCodeInvalidAmount  LedgerErrorCode = "invalid_amount"
	ErrCodeSelfTransfer   LedgerErrorCode = "self_transfer"

	// Business logic errors
	ErrCodeAccountNotFound   LedgerErrorCode = "account_not_found"
	ErrCodeAccountExists     LedgerErrorCode = "account_exists"
	ErrCodeInsufficientFunds LedgerErrorCode = "insufficient_funds"
	ErrCodeBlockNotFound     LedgerErrorCode = "block_not_found"
	ErrCodeTransferNotFound  LedgerErrorCode = "transfer_not_found"

	// Gateway errors
	ErrCodeUnauthorized LedgerErrorCode = "unauthorized"
	ErrCodeRateLimited  LedgerErrorCode = "rate_limited"
)

// Error message constants - user-friendly and concise
const (
	ErrMsgInternal          = "Server error, please try again"
	ErrMsgStorage           = "Storage backend unavailable"
	ErrMsgInvalidRequest    = "Request format is invalid"
	ErrMsgInvalidAddress    = "Account address is invalid"
	ErrMsgInvalidAmount     = "Amount must be a positive integer"
	ErrMsgSelfTransfer      = "Sender and receiver must differ"
	ErrMsgAccountNotFound   = "Account does not exist"
	ErrMsgAccountExists     = "Account is already registered"
	ErrMsgInsufficientFunds = "Not enough balance in the sender account"
	ErrMsgBlockNotFound     = "Block could not be found"
	ErrMsgTransferNotFound  = "Transfer could not be found"
	ErrMsgUnauthorized      = "Missing or invalid API key"
	ErrMsgRateLimited       = "Too many requests, please slow down"
)

// LedgerError is the domain error carried from the ledger core to the
// API surfaces, which map Code to a transport status.
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	return e.Message
}

// Is reports code equality so errors.Is works against the canonical
// instances below regardless of message detail.
func (e *LedgerError) Is(target error) bool {
	var le *LedgerError
	if !stderrors.As(target, &le) {
		return false
	}
	return e.Code == le.Code
}

// Canonical instances for errors.Is checks.
var (
	ErrInvalidRequest    = &LedgerError{Code: ErrCodeInvalidRequest, Message: ErrMsgInvalidRequest}
	ErrInvalidAddress    = &LedgerError{Code: ErrCodeInvalidAddress, Message: ErrMsgInvalidAddress}
	ErrInvalidAmount     = &LedgerError{Code: ErrCodeInvalidAmount, Message: ErrMsgInvalidAmount}
	ErrSelfTransfer      = &LedgerError{Code: ErrCodeSelfTransfer, Message: ErrMsgSelfTransfer}
	ErrAccountNotFound   = &LedgerError{Code: ErrCodeAccountNotFound, Message: ErrMsgAccountNotFound}
	ErrAccountExists     = &LedgerError{Code: ErrCodeAccountExists, Message: ErrMsgAccountExists}
	ErrInsufficientFunds = &LedgerError{Code: ErrCodeInsufficientFunds, Message: ErrMsgInsufficientFunds}
	ErrBlockNotFound     = &LedgerError{Code: ErrCodeBlockNotFound, Message: ErrMsgBlockNotFound}
	ErrTransferNotFound  = &LedgerError{Code: ErrCodeTransferNotFound, Message: ErrMsgTransferNotFound}
	ErrUnauthorized      = &LedgerError{Code: ErrCodeUnauthorized, Message: ErrMsgUnauthorized}
	ErrRateLimited       = &LedgerError{Code: ErrCodeRateLimited, Message: ErrMsgRateLimited}
)

// NewError creates a new LedgerError and returns it as error interface
func NewError(code LedgerErrorCode, message string) error {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// NewErrorf is NewError with a formatted message.
func NewErrorf(code LedgerErrorCode, format string, args ...interface{}) error {
	return &LedgerError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the ledger error code from err, walking wrap chains.
// Unknown errors (storage faults, bugs) report as internal.
func CodeOf(err error) LedgerErrorCode {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ErrCodeInternal
}

// Is delegates to the standard library so callers don't need a second
// errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As delegates to the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
