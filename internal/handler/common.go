package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"finance-ledger/internal/errors"
)

// OwnerHeader carries the authenticated user id set by the upstream layer.
const OwnerHeader = "X-User-ID"

type ownerKey struct{}

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders err in the error envelope. Server-side failures are
// logged in full and reported to the client with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := errors.AsAppError(err)
	statusCode := appErr.HTTPStatus()

	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.IsServerError() {
		logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", appErr.Code,
			"error", appErr.Error())
		if statusCode == http.StatusInternalServerError {
			errResponse.Code = string(errors.InternalError)
			errResponse.Message = errors.ErrInternal.Message
		}
		errResponse.Details = ""
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.ErrInvalidInput.WithDetails(err.Error())
	}
	return nil
}

// OwnerMiddleware rejects requests without a valid owner id and stores the
// id in the request context.
func OwnerMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := uuid.Parse(r.Header.Get(OwnerHeader))
			if err != nil || ownerID == uuid.Nil {
				writeError(w, r, logger, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, ownerID)))
		})
	}
}

// OwnerFromContext returns the owner id stored by OwnerMiddleware.
func OwnerFromContext(ctx context.Context) (uuid.UUID, bool) {
	ownerID, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	return ownerID, ok
}

func ownerOrReject(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, errors.ErrUnauthorized)
	}
	return ownerID, ok
}
