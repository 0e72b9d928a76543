package handler

import (
	"encoding/json"
	"net/http"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, error code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto its HTTP status. Errors
// without a domain code are reported as internal errors without detail.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	code := model.CodeOf(err)
	status := statusFor(code)

	switch code {
	case model.ErrCodeInternalError:
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, status, model.ErrorResponse{Error: code, Message: "internal server error"})
	case model.ErrCodeSignatureInvalid:
		writeError(w, status, code, "invalid request", logger)
	default:
		writeError(w, status, code, err.Error(), logger)
	}
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalid, model.ErrCodeInvalidJSON, model.ErrCodeSignatureInvalid:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeCapacityExceeded, model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeUpstreamFailure:
		return http.StatusBadGateway
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// Health handles GET /health requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
