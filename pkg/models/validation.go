package models

// ValidationResult is the outcome of checking a CubeQuery against a
// SchemaSnapshot. It is produced once per validation and never mutated;
// repeated validation of the same (query, schema) pair yields an
// identical result.
type ValidationResult struct {
	Valid bool `json:"valid"`

	// Errors are hard violations: measures, dimensions, or time
	// dimensions that do not exist in the schema.
	Errors []string `json:"errors,omitempty"`

	// Warnings are filter members that do not exist. Filter semantics
	// are least certain from natural language, so the query may still
	// execute.
	Warnings []string `json:"warnings,omitempty"`

	// Suggestions maps each invalid qualified reference to the closest
	// valid reference within edit distance of the suggestion threshold.
	// Absent entries mean no candidate was close enough.
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// AttemptRecord captures one pass of the correction loop for the
// pipeline trace.
type AttemptRecord struct {
	Attempt    int    `json:"attempt"`
	Valid      bool   `json:"valid"`
	ErrorCount int    `json:"errorCount"`
	Fault      string `json:"fault,omitempty"`
}
