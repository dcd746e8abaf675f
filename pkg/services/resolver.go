package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/conversation"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/cube"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/prompts"
)

// SchemaSource supplies the current schema snapshot.
type SchemaSource interface {
	Snapshot() (*models.SchemaSnapshot, error)
}

// Executor runs a validated query against the semantic layer. A nil
// Executor means the resolver returns queries without running them.
type Executor interface {
	Load(ctx context.Context, query *models.CubeQuery) ([]map[string]any, error)
}

// Exporter writes result rows to a downloadable file.
type Exporter interface {
	Export(rows []map[string]any) (string, error)
}

// Resolver is the ambiguity-resolution state machine. Each user turn is
// assessed, clarified one ambiguity at a time, confirmed, and only then
// constructed and executed.
type Resolver struct {
	llmClient   llm.LLMClient
	schema      SchemaSource
	sessions    *conversation.Store
	constructor *Constructor
	executor    Executor
	exporter    Exporter
	temperature float64
	logger      *zap.Logger
}

// NewResolver wires the state machine. executor and exporter may be nil.
func NewResolver(llmClient llm.LLMClient, schemaSource SchemaSource, sessions *conversation.Store,
	constructor *Constructor, executor Executor, exporter Exporter, temperature float64, logger *zap.Logger) *Resolver {
	return &Resolver{
		llmClient:   llmClient,
		schema:      schemaSource,
		sessions:    sessions,
		constructor: constructor,
		executor:    executor,
		exporter:    exporter,
		temperature: temperature,
		logger:      logger.Named("resolver"),
	}
}

// ProcessMessage handles one user message for a session: either the
// answer to a pending clarification, or a fresh request entering
// assessment.
func (r *Resolver) ProcessMessage(ctx context.Context, sessionID, message string) (*models.TurnResult, error) {
	snap, err := r.schema.Snapshot()
	if err != nil {
		return nil, err
	}

	var result *models.TurnResult
	err = r.sessions.WithSession(sessionID, func(cctx *models.ConversationContext) error {
		cctx.AppendTurn(models.ChatRoleUser, message, r.sessions.MaxTurns())

		if cctx.PendingAmbiguity != "" {
			result = r.receiveClarification(ctx, cctx, message, snap)
			return nil
		}

		// A new message supersedes any interpretation still awaiting
		// confirmation.
		cctx.AwaitingConfirmation = false
		cctx.ProposedParameters = nil
		cctx.OriginalQuery = message
		result = r.assess(ctx, cctx, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// assess asks the model for ambiguity flags and routes to clarification
// or confirmation. Exactly one question is asked per turn no matter how
// many flags come back.
func (r *Resolver) assess(ctx context.Context, cctx *models.ConversationContext, snap *models.SchemaSnapshot) *models.TurnResult {
	prompt := prompts.Assessment(cctx.OriginalQuery, cctx, snap)

	response, err := r.llmClient.GenerateResponse(ctx, prompt, prompts.SystemAssessment, r.temperature)
	if err != nil {
		return r.errorResult(cctx, "the request could not be assessed", err)
	}

	assessment, err := llm.ParseJSONResponse[prompts.AssessmentResult](response)
	if err != nil {
		return r.errorResult(cctx, "the assessment could not be parsed", err)
	}

	if assessment.UnsupportedCriterion != "" {
		question, suggestions := prompts.UnsupportedCriterionQuestion(assessment.UnsupportedCriterion)
		cctx.PendingAmbiguity = models.AmbiguityFilter
		cctx.AppendTurn(models.ChatRoleAssistant, question, r.sessions.MaxTurns())
		return &models.TurnResult{
			Type:        models.TurnResultClarification,
			Question:    question,
			Suggestions: suggestions,
		}
	}

	flags := r.openFlags(assessment.Ambiguities, cctx)
	if kind := models.HighestPriority(flags); kind != "" {
		question, suggestions := prompts.ClarificationQuestion(kind, snap)
		cctx.PendingAmbiguity = kind
		cctx.AppendTurn(models.ChatRoleAssistant, question, r.sessions.MaxTurns())
		r.logger.Debug("clarification requested",
			zap.String("session_id", cctx.SessionID),
			zap.String("ambiguity", string(kind)),
			zap.Int("flagged", len(flags)))
		return &models.TurnResult{
			Type:        models.TurnResultClarification,
			Question:    question,
			Suggestions: suggestions,
		}
	}

	return r.proposeConfirmation(ctx, cctx, snap)
}

// openFlags drops flags the user already resolved and anything the model
// invented outside the fixed enumeration.
func (r *Resolver) openFlags(flags []models.AmbiguityKind, cctx *models.ConversationContext) []models.AmbiguityKind {
	known := make(map[models.AmbiguityKind]bool, len(models.AmbiguityPriority))
	for _, kind := range models.AmbiguityPriority {
		known[kind] = true
	}

	open := make([]models.AmbiguityKind, 0, len(flags))
	for _, flag := range flags {
		if !known[flag] {
			r.logger.Warn("ignoring unknown ambiguity flag", zap.String("flag", string(flag)))
			continue
		}
		if _, resolved := cctx.ResolvedAspects[flag]; resolved {
			continue
		}
		open = append(open, flag)
	}
	return open
}

// receiveClarification extracts a value for the pending ambiguity from
// the user's reply and re-runs assessment with the enriched context, so
// further ambiguities surface one at a time.
func (r *Resolver) receiveClarification(ctx context.Context, cctx *models.ConversationContext, reply string, snap *models.SchemaSnapshot) *models.TurnResult {
	kind := cctx.PendingAmbiguity

	prompt := prompts.Extraction(kind, reply, cctx.OriginalQuery)
	response, err := r.llmClient.GenerateResponse(ctx, prompt, prompts.SystemExtraction, r.temperature)
	if err != nil {
		return r.errorResult(cctx, "the clarification could not be processed", err)
	}

	value := strings.TrimSpace(reply)
	if extracted, perr := llm.ParseJSONResponse[prompts.ExtractionResult](response); perr == nil && extracted.Value != "" {
		value = extracted.Value
	} else if perr != nil {
		// The raw reply is usually the value itself; keep going.
		r.logger.Warn("extraction output unparsable, using raw reply", zap.Error(perr))
	}

	cctx.ResolvedAspects[kind] = value
	cctx.PendingAmbiguity = ""

	r.logger.Debug("aspect resolved",
		zap.String("session_id", cctx.SessionID),
		zap.String("ambiguity", string(kind)),
		zap.String("value", value))

	return r.assess(ctx, cctx, snap)
}

// proposeConfirmation generates draft parameters and restates them for
// an explicit confirm/reject. Nothing executes until the user confirms.
func (r *Resolver) proposeConfirmation(ctx context.Context, cctx *models.ConversationContext, snap *models.SchemaSnapshot) *models.TurnResult {
	prompt := prompts.Construction(cctx.OriginalQuery, cctx.ResolvedAspects, snap)

	response, err := r.llmClient.GenerateResponse(ctx, prompt, prompts.SystemConstruction, r.temperature)
	if err != nil {
		return r.errorResult(cctx, "query parameters could not be generated", err)
	}

	draft, err := llm.ParseJSONResponse[models.CubeQuery](response)
	if err != nil {
		return r.errorResult(cctx, "generated parameters could not be parsed", err)
	}

	message := prompts.ConfirmationMessage(&draft)
	cctx.ProposedParameters = &draft
	cctx.AwaitingConfirmation = true
	cctx.AppendTurn(models.ChatRoleAssistant, message, r.sessions.MaxTurns())

	return &models.TurnResult{
		Type:       models.TurnResultConfirmation,
		Message:    message,
		Parameters: &draft,
	}
}

// Confirm runs construction for the session's proposed interpretation:
// the correction loop, then execution, with one loop re-entry if the
// semantic layer reports a field the local schema no longer has.
func (r *Resolver) Confirm(ctx context.Context, sessionID string) (*models.TurnResult, error) {
	snap, err := r.schema.Snapshot()
	if err != nil {
		return nil, err
	}

	var result *models.TurnResult
	err = r.sessions.WithSession(sessionID, func(cctx *models.ConversationContext) error {
		if !cctx.AwaitingConfirmation || cctx.ProposedParameters == nil {
			return apperrors.ErrNoPendingConfirmation
		}

		outcome, cerr := r.constructor.ConstructWithRetries(ctx, cctx.ProposedParameters, cctx.OriginalQuery, snap)
		if cerr != nil {
			result = exhaustedResult(outcome)
			cctx.Reset()
			return nil
		}

		result = r.execute(ctx, cctx, outcome, snap)
		cctx.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// execute runs the validated query when an executor is wired, handling
// the schema-drift path: an execution-time "field not found" re-enters
// the correction loop once before surfacing as an error.
func (r *Resolver) execute(ctx context.Context, cctx *models.ConversationContext, outcome *Outcome, snap *models.SchemaSnapshot) *models.TurnResult {
	result := &models.TurnResult{
		Type:     models.TurnResultCubeQuery,
		Query:    outcome.Query,
		Attempts: outcome.Attempts,
		Trace:    outcome.Trace,
	}

	if r.executor == nil {
		return result
	}

	rows, err := r.executor.Load(ctx, outcome.Query)
	if err != nil && cube.IsFieldNotFound(err) {
		r.logger.Warn("execution rejected a locally valid query, re-entering correction",
			zap.String("session_id", cctx.SessionID),
			zap.Error(err))

		retried, rerr := r.constructor.ResumeAfterExecutionError(ctx, err.Error(), cctx.OriginalQuery, snap)
		if rerr != nil {
			return exhaustedResult(retried)
		}

		result.Query = retried.Query
		result.Attempts = outcome.Attempts + retried.Attempts
		result.Trace = append(result.Trace, retried.Trace...)
		rows, err = r.executor.Load(ctx, retried.Query)
	}
	if err != nil {
		return &models.TurnResult{
			Type:         models.TurnResultError,
			ErrorMessage: "query execution failed",
			Details:      []string{err.Error()},
			Attempts:     result.Attempts,
			Trace:        result.Trace,
		}
	}

	result.Data = rows
	result.RowCount = len(rows)

	if r.exporter != nil && len(rows) > 0 {
		filename, xerr := r.exporter.Export(rows)
		if xerr != nil {
			r.logger.Warn("csv export failed", zap.Error(xerr))
		} else {
			result.CSVFilename = filename
		}
	}

	return result
}

// Reject handles an explicit rejection of the proposed interpretation.
// The whole context is cleared: a rejection means the interpretation,
// not one aspect, was wrong.
func (r *Resolver) Reject(ctx context.Context, sessionID string) (*models.TurnResult, error) {
	var result *models.TurnResult
	err := r.sessions.WithSession(sessionID, func(cctx *models.ConversationContext) error {
		if !cctx.AwaitingConfirmation {
			return apperrors.ErrNoPendingConfirmation
		}

		cctx.Reset()
		r.logger.Debug("interpretation rejected, context cleared",
			zap.String("session_id", cctx.SessionID))

		result = &models.TurnResult{
			Type:             models.TurnResultRejection,
			RephrasingPrompt: prompts.RephrasingPrompt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// errorResult reports a turn-level fault. The pending question state is
// cleared so the user's next message restarts at assessment.
func (r *Resolver) errorResult(cctx *models.ConversationContext, message string, cause error) *models.TurnResult {
	r.logger.Error("turn failed",
		zap.String("session_id", cctx.SessionID),
		zap.Error(cause))

	cctx.PendingAmbiguity = ""
	cctx.AwaitingConfirmation = false
	cctx.ProposedParameters = nil

	return &models.TurnResult{
		Type:         models.TurnResultError,
		ErrorMessage: message,
		Details:      []string{cause.Error()},
	}
}

// exhaustedResult surfaces the concrete validation errors and best
// suggestions after the retry budget ran out.
func exhaustedResult(outcome *Outcome) *models.TurnResult {
	result := &models.TurnResult{
		Type:         models.TurnResultError,
		ErrorMessage: fmt.Sprintf("could not produce a valid query after %d attempts", outcome.Attempts),
		Attempts:     outcome.Attempts,
		Trace:        outcome.Trace,
	}

	if last := outcome.LastValidation; last != nil {
		result.Details = append(result.Details, last.Errors...)
		for _, ref := range sortedSuggestionKeys(last.Suggestions) {
			result.Details = append(result.Details,
				fmt.Sprintf("%s: did you mean %s?", ref, last.Suggestions[ref]))
		}
	}

	return result
}

func sortedSuggestionKeys(suggestions map[string]string) []string {
	keys := make([]string, 0, len(suggestions))
	for k := range suggestions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
