package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

func testSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		ViewName: "EventsAnalytics",
		Measures: map[string]models.FieldInfo{
			"total_revenue": {Name: "total_revenue", Title: "Total Revenue"},
			"tickets_sold":  {Name: "tickets_sold", Title: "Tickets Sold"},
		},
		Dimensions: map[string]models.FieldInfo{
			"city":       {Name: "city", Kind: models.FieldKindCategorical},
			"order_date": {Name: "order_date", Kind: models.FieldKindTime},
		},
		FetchedAt: time.Now(),
	}
}

func TestConstructWithRetries_ValidDraftFirstAttempt(t *testing.T) {
	mock := &llm.MockLLMClient{}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.total_revenue"}}
	outcome, err := c.ConstructWithRetries(context.Background(), draft, "total revenue", testSnapshot())

	require.NoError(t, err)
	assert.Equal(t, draft, outcome.Query)
	assert.Equal(t, 1, outcome.Attempts)
	require.Len(t, outcome.Trace, 1)
	assert.True(t, outcome.Trace[0].Valid)
	assert.Zero(t, mock.CallCount, "a valid draft needs no generation call")
}

func TestConstructWithRetries_SuccessOnRetry(t *testing.T) {
	mock := &llm.MockLLMClient{
		Response: `{"measures": ["EventsAnalytics.tickets_sold"]}`,
	}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.ticket_sold"}}
	outcome, err := c.ConstructWithRetries(context.Background(), draft, "tickets sold", testSnapshot())

	require.NoError(t, err)
	require.NotNil(t, outcome.Query)
	assert.Equal(t, []string{"EventsAnalytics.tickets_sold"}, outcome.Query.Measures)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, 1, mock.CallCount)
	require.Len(t, outcome.Trace, 2)
	assert.False(t, outcome.Trace[0].Valid)
	assert.True(t, outcome.Trace[1].Valid)
}

func TestConstructWithRetries_CorrectionPromptCarriesErrors(t *testing.T) {
	mock := &llm.MockLLMClient{
		Response: `{"measures": ["EventsAnalytics.tickets_sold"]}`,
	}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.ticket_sold"}}
	_, err := c.ConstructWithRetries(context.Background(), draft, "tickets sold", testSnapshot())
	require.NoError(t, err)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "unknown measure: EventsAnalytics.ticket_sold")
	assert.Contains(t, mock.Prompts[0], "EventsAnalytics.tickets_sold")
}

func TestConstructWithRetries_BoundedTermination(t *testing.T) {
	// Model keeps returning the same invalid field.
	mock := &llm.MockLLMClient{
		Response: `{"measures": ["EventsAnalytics.bogus_field"]}`,
	}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.bogus_field"}}
	outcome, err := c.ConstructWithRetries(context.Background(), draft, "bogus", testSnapshot())

	require.ErrorIs(t, err, apperrors.ErrRetriesExhausted)
	assert.Nil(t, outcome.Query)
	// maxRetries=2 means at most 3 validation calls.
	assert.Equal(t, 3, outcome.Attempts)
	assert.Len(t, outcome.Trace, 3)
	require.NotNil(t, outcome.LastValidation)
	assert.False(t, outcome.LastValidation.Valid)
	assert.NotEmpty(t, outcome.LastValidation.Errors)
	assert.Equal(t, 2, mock.CallCount)
}

func TestConstructWithRetries_FaultedAttemptCountsAgainstBudget(t *testing.T) {
	mock := &llm.MockLLMClient{
		GenerateResponseFunc: func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
			return "", errors.New("context deadline exceeded")
		},
	}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.bogus_field"}}
	outcome, err := c.ConstructWithRetries(context.Background(), draft, "bogus", testSnapshot())

	require.ErrorIs(t, err, apperrors.ErrRetriesExhausted)
	assert.Equal(t, 3, outcome.Attempts)
	require.Len(t, outcome.Trace, 3)
	assert.False(t, outcome.Trace[0].Valid)
	assert.NotEmpty(t, outcome.Trace[1].Fault)
	assert.NotEmpty(t, outcome.Trace[2].Fault)
}

func TestConstructWithRetries_UnparsableOutputCountsAgainstBudget(t *testing.T) {
	mock := &llm.MockLLMClient{
		Response: "I am sorry, I cannot produce JSON today.",
	}
	c := NewConstructor(mock, 1, 0.2, zap.NewNop())

	draft := &models.CubeQuery{Measures: []string{"EventsAnalytics.bogus_field"}}
	outcome, err := c.ConstructWithRetries(context.Background(), draft, "bogus", testSnapshot())

	require.ErrorIs(t, err, apperrors.ErrRetriesExhausted)
	assert.Equal(t, 2, outcome.Attempts)
	require.Len(t, outcome.Trace, 2)
	assert.Contains(t, outcome.Trace[1].Fault, apperrors.ErrUnparsableResponse.Error())
}

func TestResumeAfterExecutionError_RegeneratesFirst(t *testing.T) {
	mock := &llm.MockLLMClient{
		Response: `{"measures": ["EventsAnalytics.total_revenue"]}`,
	}
	c := NewConstructor(mock, 2, 0.2, zap.NewNop())

	outcome, err := c.ResumeAfterExecutionError(context.Background(),
		"Member 'EventsAnalytics.revenue' not found", "revenue", testSnapshot())

	require.NoError(t, err)
	require.NotNil(t, outcome.Query)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, mock.CallCount)
	// The execution error is fed into the correction prompt.
	assert.Contains(t, mock.Prompts[0], "Member 'EventsAnalytics.revenue' not found")
}
