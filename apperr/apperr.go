// Package apperr carries typed, status-aware errors from the store and services up to the
// HTTP layer, where they become the JSON body returned to the caller.
package apperr

import (
	"errors"
	"net/http"
)

// Generic failures.
var (
	ErrBadRequest   = New("bad_request", http.StatusBadRequest, "")
	ErrValidation   = New("validation_error", http.StatusBadRequest, "request fields validation error")
	ErrEmptyBody    = New("empty_body", http.StatusBadRequest, "request body is empty")
	ErrUnauthorized = New("unauthorized", http.StatusUnauthorized, "")
	ErrForbidden    = New("forbidden", http.StatusForbidden, "")
	ErrNotFound     = New("not_found", http.StatusNotFound, "")
	ErrConflict     = New("conflict", http.StatusConflict, "")
	ErrInternal     = New("internal_error", http.StatusInternalServerError, "")
	ErrUnavailable  = New("service_unavailable", http.StatusServiceUnavailable, "")
	ErrDatabase     = New("database_error", http.StatusInternalServerError, "")
)

// Session, login and admin failures.
var (
	ErrInvalidCredentials = New("invalid_credentials", http.StatusUnauthorized, "wrong email or password")
	ErrSessionExpired     = New("session_expired", http.StatusUnauthorized, "session has expired")
	ErrSessionMalformed   = New("session_malformed", http.StatusUnauthorized, "malformed session token")
	ErrTOTPRequired       = New("totp_required", http.StatusUnauthorized, "two-factor code required")
	ErrInvalidTOTP        = New("invalid_totp", http.StatusUnauthorized, "wrong two-factor code")
	ErrRateLimited        = New("rate_limited", http.StatusTooManyRequests, "too many requests, try again later")
	ErrLastAdmin          = New("last_admin", http.StatusConflict, "at least one admin must remain")
)

const codeInternal = "internal_error"

// Error is an application error with a stable code and the HTTP status it maps to.
// Sentinels are never mutated; Wrap, WithMessage and WithFields return copies.
type Error struct {
	Code    string
	Message string
	Status  int
	Fields  map[string]any
	Err     error
}

// Body is the JSON shape of every error response.
type Body struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches application errors by code, so errors.Is(err, ErrNotFound) holds for copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

func (e *Error) derive(edit func(*Error)) *Error {
	if e == nil {
		return nil
	}
	c := *e
	edit(&c)
	return &c
}

// Wrap attaches cause to a copy of base. An empty message keeps the base message.
func Wrap(cause error, base *Error, message string) *Error {
	if cause == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	return base.derive(func(c *Error) {
		c.Err = cause
		if message != "" {
			c.Message = message
		}
	})
}

func WithMessage(base *Error, message string) *Error {
	return base.derive(func(c *Error) { c.Message = message })
}

func WithFields(base *Error, fields map[string]any) *Error {
	return base.derive(func(c *Error) { c.Fields = fields })
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return codeInternal
}

// Message is the caller-facing text. Causes of server-side errors are never shown; the
// code stands in for them.
func Message(err error) string {
	e, ok := As(err)
	if !ok {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil && e.Status < http.StatusInternalServerError:
		return e.Err.Error()
	}
	return e.Code
}

// Payload renders err as a response body.
func Payload(err error) Body {
	if err == nil {
		return Body{}
	}
	body := Body{Code: Code(err), Message: Message(err)}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		body.Fields = e.Fields
	}
	return body
}
