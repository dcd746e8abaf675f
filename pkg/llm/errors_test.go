package llm

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"unauthorized", errors.New("401 Unauthorized"), ErrorTypeAuth, false},
		{"invalid key", errors.New("invalid api key provided"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-5-mini does not exist"), ErrorTypeModel, false},
		{"endpoint 404", errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"timeout", errors.New("context deadline exceeded"), ErrorTypeEndpoint, true},
		{"rate limited", errors.New("429 rate limit reached"), ErrorTypeUnknown, true},
		{"server error", errors.New("502 bad gateway"), ErrorTypeEndpoint, true},
		{"unclassified", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if classified.Type != tt.wantType {
				t.Errorf("type = %v, want %v", classified.Type, tt.wantType)
			}
			if classified.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", classified.Retryable, tt.retryable)
			}
			if !errors.Is(classified, tt.err) {
				t.Error("classified error should wrap the cause")
			}
		})
	}
}

func TestClassifyError_PassThrough(t *testing.T) {
	original := NewError(ErrorTypeParse, "no choices", false, nil)
	classified := ClassifyError(original)
	if classified != original {
		t.Error("already classified errors should pass through unchanged")
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(nil) != nil {
		t.Error("nil should classify to nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewError(ErrorTypeEndpoint, "timeout", true, nil)) {
		t.Error("retryable error reported as not retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("unclassified error reported as retryable")
	}
}
