package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/cashier"
)

var (
	errBadRequest  = fmt.Errorf("%w: malformed request", cashier.ErrInvalidInput)
	errNoNotifier  = errors.New("cashier: notifications are not configured")
	errNoVerifier  = errors.New("cashier: webhooks are not configured")
	errUnsupported = fmt.Errorf("%w: unsupported format", cashier.ErrInvalidInput)
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps engine errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, cashier.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case cashier.IsAuthError(err):
		return http.StatusUnauthorized, "unauthorized"
	case cashier.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case cashier.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case cashier.IsConflict(err):
		return http.StatusConflict, "conflict"
	case cashier.IsQuotaError(err):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, errNoNotifier), errors.Is(err, errNoVerifier), cashier.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError writes err as JSON. Internal errors are masked.
func writeError(w http.ResponseWriter, _ *http.Request, err error) int {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
	return status
}

// fail writes err and logs it when it is not a client error.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := writeError(w, r, err); status >= http.StatusInternalServerError {
		a.logger.Error("api: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", userID(r),
			"error", err,
		)
	}
}
