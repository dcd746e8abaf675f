package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// CorrectionPrompt builds the retry prompt for an invalid query: the
// validation errors, any near-miss suggestions, the complete field lists
// of the current schema, and a reminder of the expected JSON shape. The
// schema enumeration is regenerated every attempt so a refresh between
// attempts is reflected immediately.
func CorrectionPrompt(result *models.ValidationResult, originalQuery string, snap *models.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("The query parameters you produced failed schema validation.\n\n")
	b.WriteString("Original user request: ")
	b.WriteString(originalQuery)
	b.WriteString("\n\nValidation errors:\n")
	for _, e := range result.Errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "- warning: %s\n", w)
	}

	if len(result.Suggestions) > 0 {
		b.WriteString("\nDid you mean:\n")
		for _, ref := range suggestionKeys(result) {
			fmt.Fprintf(&b, "- %s -> %s\n", ref, result.Suggestions[ref])
		}
	}

	b.WriteString("\nThe schema contains ONLY the following fields.\n\nMeasures:\n")
	for _, name := range snap.MeasureNames() {
		writeField(&b, snap.Qualify(name), snap.Measures[name])
	}

	b.WriteString("\nDimensions:\n")
	for _, name := range snap.DimensionNames() {
		writeField(&b, snap.Qualify(name), snap.Dimensions[name])
	}

	b.WriteString("\nTime dimensions:\n")
	for _, name := range snap.TimeDimensionNames() {
		writeField(&b, snap.Qualify(name), snap.Dimensions[name])
	}

	b.WriteString(`
Produce a corrected query as a single JSON object, no prose, in this shape:
{
  "measures": ["` + snap.ViewName + `.measure_name"],
  "dimensions": ["` + snap.ViewName + `.dimension_name"],
  "timeDimensions": [{"dimension": "` + snap.ViewName + `.time_field", "granularity": "day", "dateRange": "last month"}],
  "filters": [{"member": "` + snap.ViewName + `.field", "operator": "equals", "values": ["value"]}]
}
Use only fields from the lists above. Every reference must be prefixed with "` + snap.ViewName + `.".
`)

	return b.String()
}

func writeField(b *strings.Builder, qualified string, info models.FieldInfo) {
	if info.Description != "" {
		fmt.Fprintf(b, "- %s: %s\n", qualified, info.Description)
	} else if info.Title != "" {
		fmt.Fprintf(b, "- %s: %s\n", qualified, info.Title)
	} else {
		fmt.Fprintf(b, "- %s\n", qualified)
	}
}

// suggestionKeys returns suggestion map keys in the stable order the
// references appear in Errors then Warnings, so the prompt is
// deterministic.
func suggestionKeys(result *models.ValidationResult) []string {
	ordered := make([]string, 0, len(result.Suggestions))
	seen := make(map[string]bool, len(result.Suggestions))

	appendRef := func(line string) {
		idx := strings.LastIndex(line, ": ")
		if idx < 0 {
			return
		}
		ref := line[idx+2:]
		if _, ok := result.Suggestions[ref]; ok && !seen[ref] {
			ordered = append(ordered, ref)
			seen[ref] = true
		}
	}

	for _, e := range result.Errors {
		appendRef(e)
	}
	for _, w := range result.Warnings {
		appendRef(w)
	}

	// Anything not tied to an error line goes last, sorted.
	if len(ordered) < len(result.Suggestions) {
		rest := make([]string, 0, len(result.Suggestions))
		for ref := range result.Suggestions {
			if !seen[ref] {
				rest = append(rest, ref)
			}
		}
		sort.Strings(rest)
		ordered = append(ordered, rest...)
	}

	return ordered
}
