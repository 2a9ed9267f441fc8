package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error is a caller-facing failure with an HTTP status and a stable code.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code, msg string) *Error {
	return New(http.StatusBadRequest, code, errors.New(msg))
}

func NotFound(code, msg string) *Error {
	return New(http.StatusNotFound, code, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, "forbidden", errors.New(msg))
}

// Decode reads a JSON body into v, rejecting unknown shapes with 400.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return New(http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write renders err as {"error","code"}. Errors that are not *Error become
// a 500 without leaking their text.
func Write(w http.ResponseWriter, err error) {
	var ae *Error
	if errors.As(err, &ae) {
		WriteJSON(w, ae.Status, map[string]string{"error": ae.Error(), "code": ae.Code})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
		"code":  "internal",
	})
}

// QueryLimit reads the "limit" query parameter, defaulting to def and
// capping at upper.
func QueryLimit(r *http.Request, def, upper int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, BadRequest("invalid_request", "limit must be a positive integer")
	}
	return min(n, upper), nil
}
