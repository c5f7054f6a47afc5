package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/engine"
	logpkg "github.com/kailas-cloud/esbridge/internal/logger"
)

// ErrorCode is the machine-readable error class in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInvalidArgument  ErrorCode = "invalid_argument"
	CodeNotFound         ErrorCode = "not_found"
	CodeAlreadyExists    ErrorCode = "already_exists"
	CodeMigrationLocked  ErrorCode = "migration_locked"
	CodePartialMigration ErrorCode = "partial_migration"
	CodeNotImplemented   ErrorCode = "not_implemented"
	CodeEngineDown       ErrorCode = "engine_unavailable"
	CodeEngineError      ErrorCode = "engine_error"
	CodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler matches a single sentinel. Caller-fault errors echo the full
// message; engine-side errors only expose the sentinel text.
func sentinelHandler(sentinel error, status int, code ErrorCode, verbose bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if verbose {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// partialMigrationHandler reports where a reconciliation stopped.
func partialMigrationHandler(w http.ResponseWriter, err error) bool {
	var pme *domain.PartialMigrationError
	if !errors.As(err, &pme) {
		return false
	}
	done := pme.Done
	if done == nil {
		done = []string{}
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"code":    CodePartialMigration,
		"message": domain.ErrPartialMigration.Error(),
		"stage":   pme.Stage,
		"model":   pme.Model,
		"done":    done,
	})
	return true
}

var errorHandlers = []errorHandler{
	partialMigrationHandler,
	sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument, true),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound, true),
	sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists, false),
	sentinelHandler(domain.ErrMigrationLocked, http.StatusConflict, CodeMigrationLocked, false),
	sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented, false),
	sentinelHandler(engine.ErrUnavailable, http.StatusServiceUnavailable, CodeEngineDown, false),
	sentinelHandler(domain.ErrEngine, http.StatusBadGateway, CodeEngineError, false),
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
