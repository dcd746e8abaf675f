package cube

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the Cube REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cube api: status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable implements the retry.RetryableError interface.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsFieldNotFound reports whether an execution error indicates the query
// referenced a member the deployed schema does not know. Cube reports
// these as 400s with messages like "Member 'X' not found" or "Query
// contains members that are not found".
func IsFieldNotFound(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	msg := err.Error()
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}

	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "not found") {
		return false
	}
	return strings.Contains(lower, "member") ||
		strings.Contains(lower, "dimension") ||
		strings.Contains(lower, "measure")
}
