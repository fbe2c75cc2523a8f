package handler

// RESPONSE HELPERS:
// These functions standardise how we read JSON requests and send JSON
// responses and errors.
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, logger, err)
//	decodeJSON(r, &body)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"error": "medicine not found with id abc123"}
//
// Configuration failures add the names of the missing settings:
//
//	{"error": "Missing required environment variables: JWT_SECRET or AUTH_SECRET",
//	 "missing": ["JWT_SECRET or AUTH_SECRET"]}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/sakif/medtrack/internal/apperror"
)

// maxBodyBytes caps request bodies. Every payload in this API is a handful
// of short strings.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// SuccessResponse is returned by endpoints that have nothing else to say.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes, the headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation           → 400
//	ErrUnauthorized         → 401
//	ErrNotFound             → 404
//	ErrConflict             → 409
//	ErrUnsupportedMediaType → 415
//	ErrRateLimited          → 429 + Retry-After
//	ErrConfiguration        → 500 + "missing"
//	anything else           → 500, logged, details hidden
//
// errors.Is walks the whole chain, so a service can wrap an AppError with
// fmt.Errorf("...: %w", err) and the mapping still works.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client. The raw message
		// might contain SQL, file paths or other sensitive details.
		logger.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: appErr.Message}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, apperror.ErrRateLimited):
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	case errors.Is(err, apperror.ErrConfiguration):
		resp.Missing = appErr.Missing
		logger.Error("server misconfigured", slog.Any("missing", appErr.Missing))
	default:
		logger.Error("unmapped application error", slog.String("error", err.Error()))
		resp.Error = "Internal server error"
	}

	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON request body into dst.
//
// Errors:
//   - 415 if the Content-Type is not application/json
//   - 400 if the body is empty, malformed, too large, or has trailing data
func decodeJSON(r *http.Request, dst any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return apperror.UnsupportedMediaType("Content-Type must be application/json")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	// A second value (or garbage) after the object is also malformed.
	if dec.More() {
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	return nil
}

// hasBody reports whether the request carries a body at all.
// Used by endpoints whose body is optional.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
