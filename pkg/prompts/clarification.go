package prompts

import (
	"fmt"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// maxFieldSuggestions caps how many schema fields a clarification
// question offers as example answers.
const maxFieldSuggestions = 5

// ClarificationQuestion renders the question and example answers for one
// ambiguity kind. Suggestions are derived from the schema so they always
// name real fields.
func ClarificationQuestion(kind models.AmbiguityKind, snap *models.SchemaSnapshot) (string, []string) {
	switch kind {
	case models.AmbiguityTime:
		return "What time period should this cover?",
			[]string{"last month", "last 7 days", "this year", "all time"}

	case models.AmbiguityGrouping:
		suggestions := fieldSuggestions(snap.DimensionNames(), "by %s")
		suggestions = append(suggestions, "no grouping, just the total")
		return "How would you like the results grouped?", suggestions

	case models.AmbiguityFilter:
		return "Which values should the results be limited to?",
			fieldSuggestions(snap.DimensionNames(), "filter by %s")

	case models.AmbiguityMeasure:
		return "Which metric are you interested in?",
			fieldSuggestions(snap.MeasureNames(), "%s")

	case models.AmbiguityDimension:
		return "Which attribute do you want to see?",
			fieldSuggestions(snap.DimensionNames(), "%s")
	}

	return "Could you clarify what you mean?", nil
}

// UnsupportedCriterionQuestion is the degradation path: the request named
// something the schema has no field for, so the question says so and
// offers to continue without it.
func UnsupportedCriterionQuestion(criterion string) (string, []string) {
	question := fmt.Sprintf(
		"The data doesn't include anything matching %q, so I can't apply that part of your request. "+
			"Would you like to proceed without it?", criterion)
	return question, []string{"yes, proceed without it", "no, let me rephrase"}
}

func fieldSuggestions(names []string, format string) []string {
	if len(names) > maxFieldSuggestions {
		names = names[:maxFieldSuggestions]
	}
	suggestions := make([]string, 0, len(names))
	for _, name := range names {
		suggestions = append(suggestions, fmt.Sprintf(format, name))
	}
	return suggestions
}
