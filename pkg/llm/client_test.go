package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{
		Endpoint: server.URL,
		Model:    "test-model",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	response, err := client.GenerateResponse(context.Background(), "prompt", "system", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
}

func TestClient_TimeoutAborted(t *testing.T) {
	// The endpoint stalls well past the configured timeout; the call must
	// fail within the cap, not wait for the response.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"too late"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{
		Endpoint: server.URL,
		Model:    "test-model",
		Timeout:  40 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	_, err = client.GenerateResponse(context.Background(), "prompt", "system", 0)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 300*time.Millisecond)

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Contains(t, strings.ToLower(llmErr.Error()), "timeout")
}
