package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/and161185/shopverse/internal/errs"
)

// Error is a non-2xx response. Message is the server's own text when it sent one.
type Error struct {
	Status  int
	Message string
	kind    error
}

func newError(status int, body []byte) *Error {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &env)
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	return &Error{Status: status, Message: msg, kind: kindOf(status)}
}

func kindOf(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.ErrValidation
	}
	return nil
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

// Unwrap exposes the matching sentinel so errors.Is works.
func (e *Error) Unwrap() error { return e.kind }

// UserMessage returns the server's message verbatim when available, else fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
