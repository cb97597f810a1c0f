// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package apierror defines the typed errors surfaced to API clients.
package apierror

import (
	"errors"
	"net/http"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries the HTTP status and client-facing message of a failure.
// It renders as {"message": ..., "errors": [...]}.
type Error struct {
	Status  int          `json:"-"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an error for status. An empty message falls back to the
// status text.
func New(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message}
}

// Wrap attaches cause to a new error; the cause is kept out of the
// client-facing message.
func Wrap(status int, message string, cause error) *Error {
	e := New(status, message)
	e.cause = cause
	return e
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func InvalidRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Validation(errs []FieldError) *Error {
	e := New(http.StatusBadRequest, "Validation Error")
	e.Errors = errs
	return e
}

func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, "")
}

func Internal(cause error) *Error {
	return Wrap(http.StatusInternalServerError, "", cause)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf maps err to a status code; anything untyped is a 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if apiErr, ok := As(err); ok {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
