// Package errors defines the error taxonomy shared by the solclient packages.
//
// Every failure carries a stable code so callers can match with errors.Is against the
// predefined sentinels regardless of message text or wrapped cause.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeEncoding                = "ENCODING_ERROR"
	ErrCodeSeedTooLong             = "SEED_TOO_LONG"
	ErrCodeNoViableAddress         = "NO_VIABLE_ADDRESS"
	ErrCodeUnknownAccountReference = "UNKNOWN_ACCOUNT_REFERENCE"
	ErrCodeInvalidBlockHash        = "INVALID_BLOCK_HASH"
	ErrCodeRPC                     = "RPC_ERROR"
	ErrCodeParseFailure            = "PARSE_FAILURE"
	ErrCodeTransportFailure        = "TRANSPORT_FAILURE"
	ErrCodeSubscriptionNotFound    = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeAlreadyBuilt            = "ALREADY_BUILT"
	ErrCodeNoSigners               = "NO_SIGNERS"
	ErrCodeNotConfirmed            = "NOT_CONFIRMED"
	ErrCodeRequestCanceled         = "REQUEST_CANCELED"
	ErrCodeUnsubscribeRejected     = "UNSUBSCRIBE_REJECTED"
	ErrCodeCustom                  = "CUSTOM"
)

// ClientError is the error type returned by solclient packages.
type ClientError struct {
	// Code is a unique error code for this error type.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error.
func (e *ClientError) WithCause(cause error) *ClientError {
	e.Cause = cause
	return e
}

// WithDetails adds details to the error.
func (e *ClientError) WithDetails(details map[string]any) *ClientError {
	e.Details = details
	return e
}

// NewError creates a new ClientError.
func NewError(code, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrEncoding                = NewError(ErrCodeEncoding, "invalid encoding")
	ErrSeedTooLong             = NewError(ErrCodeSeedTooLong, "seed exceeds 32 bytes")
	ErrNoViableAddress         = NewError(ErrCodeNoViableAddress, "no off-curve address for any bump")
	ErrUnknownAccountReference = NewError(ErrCodeUnknownAccountReference, "instruction references unknown account")
	ErrInvalidBlockHash        = NewError(ErrCodeInvalidBlockHash, "block hash must decode to 32 bytes")
	ErrRPC                     = NewError(ErrCodeRPC, "rpc error")
	ErrParseFailure            = NewError(ErrCodeParseFailure, "failed to parse response")
	ErrTransportFailure        = NewError(ErrCodeTransportFailure, "transport failure")
	ErrSubscriptionNotFound    = NewError(ErrCodeSubscriptionNotFound, "subscription not found")
	ErrAlreadyBuilt            = NewError(ErrCodeAlreadyBuilt, "transaction already built")
	ErrNoSigners               = NewError(ErrCodeNoSigners, "at least one signer is required")
	ErrNotConfirmed            = NewError(ErrCodeNotConfirmed, "subscription not confirmed yet")
	ErrRequestCanceled         = NewError(ErrCodeRequestCanceled, "request canceled")
	ErrUnsubscribeRejected     = NewError(ErrCodeUnsubscribeRejected, "server rejected unsubscribe")
)

// EncodingError creates an error for malformed base58/base64 input.
func EncodingError(what string, cause error) *ClientError {
	return NewError(ErrCodeEncoding, fmt.Sprintf("invalid %s input", what)).WithCause(cause)
}

// SeedTooLong creates an error for a PDA seed longer than the limit.
func SeedTooLong(index, length int) *ClientError {
	return NewError(ErrCodeSeedTooLong, fmt.Sprintf("seed %d is %d bytes, max 32", index, length))
}

// UnknownAccountReference creates an error naming the missing account.
func UnknownAccountReference(key string) *ClientError {
	return NewError(ErrCodeUnknownAccountReference, fmt.Sprintf("account %s is not in the account list", key))
}

// InvalidBlockHash creates an error for a block hash that does not decode to 32 bytes.
func InvalidBlockHash(hash string, cause error) *ClientError {
	return NewError(ErrCodeInvalidBlockHash, fmt.Sprintf("invalid block hash %q", hash)).WithCause(cause)
}

// RPCError creates an error from a server error object. data is pretty-printed
// into Details["data"] when present.
func RPCError(message string, data json.RawMessage) *ClientError {
	e := NewError(ErrCodeRPC, message)
	if len(data) > 0 && string(data) != "null" {
		pretty := string(data)
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			if b, err := json.MarshalIndent(v, "", "  "); err == nil {
				pretty = string(b)
			}
		}
		e.Details = map[string]any{"data": pretty}
	}
	return e
}

// ParseFailure creates an error for a response body that could not be parsed.
func ParseFailure(cause error) *ClientError {
	return NewError(ErrCodeParseFailure, "failed to parse response").WithCause(cause)
}

// TransportFailure creates an error for a failed send or connect.
func TransportFailure(cause error) *ClientError {
	return NewError(ErrCodeTransportFailure, "transport failure").WithCause(cause)
}

// SubscriptionNotFound creates an error for an unknown subscription number.
func SubscriptionNotFound(number uint64) *ClientError {
	return NewError(ErrCodeSubscriptionNotFound, fmt.Sprintf("no subscription with number %d", number))
}

// NotConfirmed creates an error for an operation that needs a confirmed subscription.
func NotConfirmed(requestID uint64) *ClientError {
	return NewError(ErrCodeNotConfirmed, fmt.Sprintf("subscription request %d is not confirmed", requestID))
}

// UnsubscribeRejected creates an error for an unsubscribe the server answered with false.
func UnsubscribeRejected(number uint64) *ClientError {
	return NewError(ErrCodeUnsubscribeRejected, fmt.Sprintf("server refused to drop subscription %d", number))
}

// Custom creates a custom error with the given message.
func Custom(message string) *ClientError {
	return NewError(ErrCodeCustom, message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
