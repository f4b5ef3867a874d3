package domain

import (
	"fmt"
	"strings"
)

// ErrorCategory groups errors for the transport layer, which distinguishes a
// malformed request from one that is well formed but not applicable.
type ErrorCategory string

// Error categories.
const (
	CategoryInvalidParams  ErrorCategory = "invalid_params"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryMethodNotFound ErrorCategory = "method_not_found"
)

// CategorizedError is implemented by every error of the action taxonomy.
type CategorizedError interface {
	error
	Category() ErrorCategory
}

// UnsupportedProtocolError is returned when an action does not apply to the
// transaction's protocol.
type UnsupportedProtocolError struct {
	Action   string
	Protocol Protocol
}

func (e UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("Protocol[%s] is not supported by action[%s]", e.Protocol, e.Action)
}

// Category implements CategorizedError.
func (UnsupportedProtocolError) Category() ErrorCategory { return CategoryInvalidRequest }

// UnsupportedStatusError is returned when an action does not apply to the
// transaction's current status.
type UnsupportedStatusError struct {
	Action string
	Status Status
}

func (e UnsupportedStatusError) Error() string {
	return fmt.Sprintf("Action[%s] is not supported for status[%s]", e.Action, e.Status)
}

// Category implements CategorizedError.
func (UnsupportedStatusError) Category() ErrorCategory { return CategoryInvalidRequest }

// InvalidParamsError carries one or more validation messages. Error joins
// them with a newline in the order they were produced.
type InvalidParamsError struct {
	Messages []string
}

// NewInvalidParams builds an InvalidParamsError from a single message.
func NewInvalidParams(format string, args ...any) InvalidParamsError {
	return InvalidParamsError{Messages: []string{fmt.Sprintf(format, args...)}}
}

func (e InvalidParamsError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Category implements CategorizedError.
func (InvalidParamsError) Category() ErrorCategory { return CategoryInvalidParams }

// NotFoundError is returned when no protocol store holds the transaction id.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("transaction (id=%s) is not found", e.ID)
}

// Category implements CategorizedError.
func (NotFoundError) Category() ErrorCategory { return CategoryNotFound }

// UnknownActionError is returned when no handler is registered for an action.
type UnknownActionError struct {
	Action string
}

func (e UnknownActionError) Error() string {
	return fmt.Sprintf("action[%s] is not supported", e.Action)
}

// Category implements CategorizedError.
func (UnknownActionError) Category() ErrorCategory { return CategoryMethodNotFound }
