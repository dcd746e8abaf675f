package models

// TurnResultType routes a turn's outcome in the chat layer.
type TurnResultType string

const (
	TurnResultClarification TurnResultType = "clarification"
	TurnResultConfirmation  TurnResultType = "confirmation"
	TurnResultRejection     TurnResultType = "rejection"
	TurnResultCubeQuery     TurnResultType = "cube_query"
	TurnResultError         TurnResultType = "error"
)

// TurnResult is the caller-facing outcome of one processed turn. Exactly
// the fields relevant to Type are populated.
type TurnResult struct {
	Type TurnResultType `json:"type"`

	// Clarification
	Question    string   `json:"question,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Confirmation
	Message    string     `json:"message,omitempty"`
	Parameters *CubeQuery `json:"parameters,omitempty"`

	// Rejection
	RephrasingPrompt string `json:"rephrasingPrompt,omitempty"`

	// Cube query (validated, and optionally executed)
	Query       *CubeQuery       `json:"query,omitempty"`
	Attempts    int              `json:"attempts,omitempty"`
	Trace       []AttemptRecord  `json:"trace,omitempty"`
	Data        []map[string]any `json:"data,omitempty"`
	RowCount    int              `json:"rowCount,omitempty"`
	CSVFilename string           `json:"csvFilename,omitempty"`

	// Error
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Details      []string `json:"details,omitempty"`
}
