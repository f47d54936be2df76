package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bgtwallet/bgtwallet/internal/api/middleware"
	"github.com/bgtwallet/bgtwallet/internal/api/problem"
	"github.com/bgtwallet/bgtwallet/internal/models"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("encode response failed", zap.Error(err))
	}
}

// RespondError maps a service error onto an RFC 7807 response.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, slug := classify(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("trace_id", middleware.TraceIDFromContext(r.Context())),
			zap.Error(err),
		)
		problem.Write(w, r, status, problem.Type(slug), "", "internal server error")
		return
	}
	problem.Write(w, r, status, problem.Type(slug), "", err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden, "access-denied"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not-found"
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient-funds"
	case errors.Is(err, models.ErrBelowMinimum):
		return http.StatusBadRequest, "below-minimum"
	case errors.Is(err, models.ErrInvalidNumber):
		return http.StatusBadRequest, "invalid-number"
	case errors.Is(err, models.ErrInvalidCode):
		return http.StatusBadRequest, "invalid-code"
	case errors.Is(err, models.ErrNumberAlreadySold):
		return http.StatusConflict, "number-already-sold"
	case errors.Is(err, models.ErrStillProcessing):
		return http.StatusConflict, "still-processing"
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict, "invalid-state"
	case errors.Is(err, models.ErrNoActiveSale):
		return http.StatusConflict, "no-active-sale"
	case errors.Is(err, models.ErrNoActiveWithdrawal):
		return http.StatusConflict, "no-active-withdrawal"
	case errors.Is(err, models.ErrBotInactive):
		return http.StatusServiceUnavailable, "service-suspended"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), "", "invalid request body")
		return false
	}
	return true
}

func requestActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := middleware.AccountIDFromContext(r.Context())
	if accountID == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/unauthenticated"), "", "authentication required")
		return "", false
	}
	return accountID, true
}
