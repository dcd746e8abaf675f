package apperrors

import "errors"

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrNoPendingConfirmation = errors.New("no interpretation awaiting confirmation")
	ErrRetriesExhausted      = errors.New("correction retries exhausted")
	ErrUnparsableResponse    = errors.New("model response could not be parsed")
	ErrSchemaUnavailable     = errors.New("schema metadata unavailable")
)
