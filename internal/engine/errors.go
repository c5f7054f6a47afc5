package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for engine operations.
var (
	ErrNotFound     = errors.New("engine: not found")
	ErrConflict     = errors.New("engine: conflict")
	ErrUnavailable  = errors.New("engine: unavailable")
	ErrNotSupported = errors.New("engine: not supported")
)

// Op constants name engine API calls for error context and metrics labels.
const (
	OpSearch        = "search"
	OpSuggest       = "suggest"
	OpCount         = "count"
	OpGet           = "get"
	OpExists        = "exists"
	OpCreate        = "create"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpDeleteByQuery = "delete_by_query"
	OpEnsureIndex   = "indices.create"
	OpPutMapping    = "indices.put_mapping"
	OpDeleteMapping = "indices.delete_mapping"
	OpTypeExists    = "indices.exists_type"
	OpPing          = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// StatusError is a non-2xx engine response.
type StatusError struct {
	Status int
	Type   string
	Reason string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("status %d", e.Status)
	if e.Type != "" {
		msg += ": " + e.Type
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return nil
	}
}

// DecodeError reads an engine error body. The body may be empty (HEAD) or
// carry {"error": "..."} or {"error": {"type": ..., "reason": ...}}.
func DecodeError(status int, body io.Reader) error {
	se := &StatusError{Status: status}
	if body == nil {
		return se
	}
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || len(payload.Error) == 0 {
		return se
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(payload.Error, &detail); err == nil {
		se.Type, se.Reason = detail.Type, detail.Reason
		return se
	}
	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil {
		se.Reason = msg
	}
	return se
}

// IsType reports whether err carries an engine error of the given type,
// e.g. resource_already_exists_exception.
func IsType(err error, typ string) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Type == typ
}

// Unavailable wraps a transport failure.
func Unavailable(op string, err error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}
