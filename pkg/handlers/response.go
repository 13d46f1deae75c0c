package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
)

// ApiResponse is the standard envelope for API responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorStatus maps an error class to an HTTP status and error code.
// Caller mistakes are 4xx; a broken or unreachable target is 502; a statement
// the engine rejected is 409.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidDefinition):
		return http.StatusBadRequest, "invalid_definition"
	case errors.Is(err, apperrors.ErrTypeMapping):
		return http.StatusBadRequest, "type_mapping"
	case errors.Is(err, apperrors.ErrUnsupportedEngine):
		return http.StatusBadRequest, "unsupported_engine"
	case errors.Is(err, apperrors.ErrInvalidConnection):
		return http.StatusBadRequest, "invalid_connection"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrMetadataUnavailable):
		return http.StatusBadGateway, "metadata_unavailable"
	case errors.Is(err, apperrors.ErrExecution):
		return http.StatusConflict, "execution_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError writes err as an ApiResponse. data, when non-nil, carries
// a partial result such as a plan report.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, data any) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("error_code", code), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("error_code", code), zap.Error(err))
	}

	response := ApiResponse{
		Success: false,
		Data:    data,
		Error:   code,
		Message: err.Error(),
	}
	if err := WriteJSON(w, status, response); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeSuccess writes data in a successful ApiResponse.
func writeSuccess(w http.ResponseWriter, logger *zap.Logger, data any, message string) {
	response := ApiResponse{Success: true, Data: data, Message: message}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decodeJSON reads the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

// badRequest writes a 400 with the given code and message.
func badRequest(w http.ResponseWriter, logger *zap.Logger, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
