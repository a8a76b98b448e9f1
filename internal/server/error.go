// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrPanic            = errors.New("handler panicked")
)

// StatusCoder is implemented by errors which know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with an HTTP status and a message which is safe to
// show to the user.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

var _ StatusCoder = (*HTTPError)(nil)

// NewHTTPError creates an HTTPError.  An empty msg defaults to the status
// text.
func NewHTTPError(status int, msg string, err error) *HTTPError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: msg, Err: err}
}

// NotFound is the error for an unmatched route.
func NotFound() *HTTPError {
	return NewHTTPError(http.StatusNotFound, "", nil)
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *HTTPError) Unwrap() error { return e.Err }

// StatusCode implements StatusCoder.
func (e *HTTPError) StatusCode() int { return e.Status }

// statusOf returns err's declared status, or 500.
func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if s := sc.StatusCode(); s >= 400 && s <= 599 {
			return s
		}
	}
	return http.StatusInternalServerError
}
