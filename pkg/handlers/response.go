package handlers

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned by the API. Clients branch on
// the code; the message is for humans.
const (
	codeInvalidRequest        = "invalid_request"
	codeInvalidFilename       = "invalid_filename"
	codeSessionNotFound       = "session_not_found"
	codeNoPendingConfirmation = "no_pending_confirmation"
	codeSchemaUnavailable     = "schema_unavailable"
	codeRefreshFailed         = "refresh_failed"
	codeInternalError         = "internal_error"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes an error code plus human-readable message as JSON.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, apiError{Error: errorCode, Message: message})
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
