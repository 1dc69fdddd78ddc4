package rpc

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/native/badge"
	"github.com/lober-org/welovedogs/native/common"
	"github.com/lober-org/welovedogs/native/donation"
)

// writeCallError maps ledger and host failures onto HTTP statuses and
// JSON-RPC codes. Unclassified failures are logged and reported without
// their cause.
func (s *Server) writeCallError(w http.ResponseWriter, id interface{}, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.internalError(w, id, "call failed", err)
		return
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) internalError(w http.ResponseWriter, id interface{}, op string, err error) {
	s.logger.Error("rpc "+op, slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", nil)
}

func classify(err error) (int, int) {
	switch {
	case errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, donation.ErrUnauthorized),
		errors.Is(err, badge.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, badge.ErrNotOwner),
		errors.Is(err, badge.ErrIncorrectOwner):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusConflict, codeNonceMismatch
	case errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, core.ErrMethodMismatch),
		errors.Is(err, donation.ErrAmountRequired),
		errors.Is(err, donation.ErrAmountOutOfRange),
		errors.Is(err, badge.ErrInvalidMetadata):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, common.ErrModulePaused),
		errors.Is(err, badge.ErrAlreadyPaused),
		errors.Is(err, badge.ErrNotPaused),
		errors.Is(err, badge.ErrAlreadyInitialized),
		errors.Is(err, badge.ErrNotInitialized),
		errors.Is(err, donation.ErrAlreadyInitialized):
		return http.StatusConflict, codeConflict
	case errors.Is(err, donation.ErrAggregateOverflow),
		errors.Is(err, donation.ErrIDSpaceExhausted),
		errors.Is(err, badge.ErrTokenIDOverflow):
		return http.StatusUnprocessableEntity, codeOverflow
	case errors.Is(err, badge.ErrTokenNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeServerError
	}
}
