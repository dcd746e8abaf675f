package cube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

const testSecret = "test-secret"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:   server.URL,
		APISecret: testSecret,
	}, zap.NewNop())
	require.NoError(t, err)
	client.waitDelay = time.Millisecond
	return client, server
}

const metaJSON = `{
  "cubes": [
    {
      "name": "EventsAnalytics",
      "title": "Events Analytics",
      "measures": [
        {"name": "EventsAnalytics.total_revenue", "title": "Total Revenue", "description": "Gross revenue", "type": "number"},
        {"name": "EventsAnalytics.tickets_sold", "title": "Tickets Sold", "type": "number"}
      ],
      "dimensions": [
        {"name": "EventsAnalytics.city", "title": "City", "type": "string"},
        {"name": "EventsAnalytics.order_date", "title": "Order Date", "type": "time"}
      ]
    },
    {"name": "OtherCube", "measures": [], "dimensions": []}
  ]
}`

func TestFetchView(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cubejs-api/v1/meta", r.URL.Path)
		_, _ = w.Write([]byte(metaJSON))
	}))

	snap, err := client.FetchView(context.Background(), "EventsAnalytics")
	require.NoError(t, err)

	assert.Equal(t, "EventsAnalytics", snap.ViewName)
	assert.True(t, snap.HasMeasure("total_revenue"))
	assert.Equal(t, "Gross revenue", snap.Measures["total_revenue"].Description)
	assert.True(t, snap.HasDimension("city"))
	assert.True(t, snap.HasTimeDimension("order_date"))
	assert.False(t, snap.HasTimeDimension("city"))
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchView_UnknownView(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(metaJSON))
	}))

	_, err := client.FetchView(context.Background(), "MissingView")
	assert.ErrorContains(t, err, "MissingView")
}

func TestBearerTokenSignedWithSecret(t *testing.T) {
	var authHeader string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(metaJSON))
	}))

	_, err := client.FetchView(context.Background(), "EventsAnalytics")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(authHeader, "Bearer "))
	raw := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
}

func TestLoad(t *testing.T) {
	var received map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cubejs-api/v1/load", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"data": [{"EventsAnalytics.total_revenue": 1200}]}`))
	}))

	query := &models.CubeQuery{Measures: []string{"EventsAnalytics.total_revenue"}}
	rows, err := client.Load(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, float64(1200), rows[0]["EventsAnalytics.total_revenue"])

	// The query travels wrapped in a "query" envelope.
	require.Contains(t, received, "query")
}

func TestLoad_ContinueWaitThenData(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			_, _ = w.Write([]byte(`{"error": "Continue wait"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"EventsAnalytics.tickets_sold": 7}]}`))
	}))

	rows, err := client.Load(context.Background(), &models.CubeQuery{Measures: []string{"EventsAnalytics.tickets_sold"}})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, rows, 1)
}

func TestLoad_ErrorBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Member 'EventsAnalytics.revenue' not found"}`))
	}))

	_, err := client.Load(context.Background(), &models.CubeQuery{Measures: []string{"EventsAnalytics.revenue"}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, IsFieldNotFound(err))
}

func TestIsFieldNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"member not found", errors.New("Member 'X.y' not found"), true},
		{"members not found", errors.New("Query contains members that are not found: X.y"), true},
		{"dimension not found", errors.New("dimension X.y not found"), true},
		{"unrelated not found", errors.New("route not found"), false},
		{"unrelated error", errors.New("database is down"), false},
		{"api error", &APIError{StatusCode: 400, Message: "Measure 'X.z' not found"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFieldNotFound(tt.err))
		})
	}
}

func TestReady(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			_, _ = w.Write([]byte(`{"health": "HEALTH"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.NoError(t, client.Ready(context.Background()))
}

func TestAPIError_Retryability(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 503}).IsRetryable())
	assert.True(t, (&APIError{StatusCode: 429}).IsRetryable())
	assert.False(t, (&APIError{StatusCode: 400}).IsRetryable())
}
