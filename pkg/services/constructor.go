package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/prompts"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/validator"
)

// Constructor runs the bounded generate-validate correction loop.
type Constructor struct {
	llmClient   llm.LLMClient
	maxRetries  int
	temperature float64
	logger      *zap.Logger
}

// NewConstructor creates a constructor with the given retry budget.
// maxRetries is the number of regeneration attempts after the first
// validation, so the loop performs at most maxRetries+1 validations.
func NewConstructor(llmClient llm.LLMClient, maxRetries int, temperature float64, logger *zap.Logger) *Constructor {
	return &Constructor{
		llmClient:   llmClient,
		maxRetries:  maxRetries,
		temperature: temperature,
		logger:      logger.Named("constructor"),
	}
}

// Outcome is the result of one correction-loop run. Query is nil when
// the budget was exhausted; LastValidation then carries the concrete
// errors and suggestions for the caller to surface.
type Outcome struct {
	Query          *models.CubeQuery
	Attempts       int
	Trace          []models.AttemptRecord
	LastValidation *models.ValidationResult
}

// ConstructWithRetries validates draft as given, then regenerates from a
// correction prompt on each failure, up to the retry budget. Faults
// inside an attempt (timeout, unparsable output) consume that attempt
// rather than aborting the loop, so termination is guaranteed.
func (c *Constructor) ConstructWithRetries(ctx context.Context, draft *models.CubeQuery, originalQuery string, snap *models.SchemaSnapshot) (*Outcome, error) {
	return c.run(ctx, draft, nil, originalQuery, snap)
}

// ResumeAfterExecutionError re-enters the loop after the semantic layer
// rejected a query that passed local validation (schema drift). The
// execution error is treated as a validation failure: regeneration runs
// first, against the same budget.
func (c *Constructor) ResumeAfterExecutionError(ctx context.Context, execErr string, originalQuery string, snap *models.SchemaSnapshot) (*Outcome, error) {
	seed := &models.ValidationResult{
		Valid:  false,
		Errors: []string{execErr},
	}
	return c.run(ctx, nil, seed, originalQuery, snap)
}

func (c *Constructor) run(ctx context.Context, draft *models.CubeQuery, seed *models.ValidationResult, originalQuery string, snap *models.SchemaSnapshot) (*Outcome, error) {
	outcome := &Outcome{LastValidation: seed}
	candidate := draft

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		outcome.Attempts = attempt

		// Attempt 1 validates the draft as given; later attempts
		// regenerate from the correction prompt first. A faulted
		// regeneration (timeout, unparsable output) consumes its
		// attempt without a validation call.
		if candidate == nil {
			regenerated, fault := c.regenerate(ctx, outcome.LastValidation, originalQuery, snap)
			if fault != nil {
				outcome.Trace = append(outcome.Trace, models.AttemptRecord{
					Attempt: attempt,
					Fault:   fault.Error(),
				})
				continue
			}
			candidate = regenerated
		}

		result := validator.Validate(candidate, snap)
		outcome.LastValidation = result
		outcome.Trace = append(outcome.Trace, models.AttemptRecord{
			Attempt:    attempt,
			Valid:      result.Valid,
			ErrorCount: len(result.Errors),
		})

		if result.Valid {
			outcome.Query = candidate
			c.logger.Info("query validated",
				zap.Int("attempt", attempt),
				zap.Int("warnings", len(result.Warnings)))
			return outcome, nil
		}

		c.logger.Warn("validation failed",
			zap.Int("attempt", attempt),
			zap.Strings("errors", result.Errors))

		candidate = nil
	}

	return outcome, fmt.Errorf("%w after %d attempts", apperrors.ErrRetriesExhausted, outcome.Attempts)
}

func (c *Constructor) regenerate(ctx context.Context, last *models.ValidationResult, originalQuery string, snap *models.SchemaSnapshot) (*models.CubeQuery, error) {
	prompt := prompts.Construction(originalQuery, nil, snap)
	if last != nil {
		prompt = validator.CorrectionPrompt(last, originalQuery, snap)
	}

	response, err := c.llmClient.GenerateResponse(ctx, prompt, prompts.SystemConstruction, c.temperature)
	if err != nil {
		c.logger.Warn("regeneration call failed", zap.Error(err))
		return nil, err
	}

	query, err := llm.ParseJSONResponse[models.CubeQuery](response)
	if err != nil {
		c.logger.Warn("regenerated output unparsable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnparsableResponse, err)
	}

	return &query, nil
}
