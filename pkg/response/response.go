// Package response provides the JSON response envelope and the HTTP
// error taxonomy used at the service boundary. Domain errors are mapped
// onto HTTPError values by handlers; everything unexpected renders as a
// 500 without leaking internals.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPError is an HTTP status code paired with a stable machine-readable
// key. The key doubles as the client-facing error code.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string { return e.Key }

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
)

// NewHTTPError creates a custom HTTP error with the given status and key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

// ErrorDetail carries error information in the response envelope.
type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Envelope is the standard JSON response body.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON writes data wrapped in the standard envelope with status 200.
func JSON(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, Envelope{Data: data})
}

// JSONStatus writes data wrapped in the standard envelope with a custom
// status code.
func JSONStatus(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data})
}

// Raw writes data as the response body without the envelope. Used for
// externally-specified contracts such as the license validation verdict.
func Raw(w http.ResponseWriter, status int, data any) {
	write(w, status, data)
}

// Error writes err as a JSON error response. HTTPError values keep their
// status and key; anything else becomes a 500 with a generic message.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	}

	write(w, status, Envelope{Error: detail})
}
