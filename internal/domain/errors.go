// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the blockchain client. Callers match them with errors.Is.
var (
	ErrNotInitialized      = errors.New("blockchain client not initialized")
	ErrEncoding            = errors.New("abi encoding error")
	ErrCommunication       = errors.New("node communication failure")
	ErrCallReverted        = errors.New("call reverted")
	ErrTransactionRejected = errors.New("transaction rejected")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProtocolMismatch    = errors.New("protocol mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWaitCancelled       = errors.New("receipt wait cancelled")
)

// Error carries the kind of failure together with the operation that produced it,
// the node-supplied message (if any) and the underlying cause.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause, so errors.Is works against either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error of the given kind.
func NewError(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Errorf builds an *Error of the given kind with a formatted message and no cause.
func Errorf(kind error, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or nil when err is not one of ours.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrNotInitialized,
		ErrEncoding,
		ErrCommunication,
		ErrCallReverted,
		ErrTransactionRejected,
		ErrTransactionNotFound,
		ErrProtocolMismatch,
		ErrInsufficientBalance,
		ErrWaitCancelled,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsFatalForAttempt reports whether err means the current business attempt must be
// surfaced as failed instead of continuing with a substitute value.
func IsFatalForAttempt(err error) bool {
	return errors.Is(err, ErrTransactionRejected) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrProtocolMismatch)
}
