package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ErrorMapping renders errors matching Target with a fixed status and code.
// An empty Message exposes the matched error's text.
type ErrorMapping struct {
	Target  error
	Status  int
	Code    string
	Message string
}

// MapError converts err using the first mapping it matches. Errors that
// already are AppErrors are returned unchanged; unmatched errors yield nil.
func MapError(err error, mappings ...ErrorMapping) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range mappings {
		if !errors.Is(err, m.Target) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		status := m.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return NewAppError(m.Code, msg, status, err)
	}
	return nil
}
