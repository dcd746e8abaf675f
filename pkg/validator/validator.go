package validator

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// suggestionThreshold is the maximum edit distance for a "did you mean"
// candidate.
const suggestionThreshold = 3

// Validate checks every field reference in the query against the
// snapshot. Unknown measures, dimensions, and time dimensions are hard
// errors; unknown filter members are warnings, because filter intent is
// the least certain part of extraction. Validation is deterministic: the
// same query and snapshot always produce the same result.
func Validate(query *models.CubeQuery, snap *models.SchemaSnapshot) *models.ValidationResult {
	result := &models.ValidationResult{
		Valid:       true,
		Suggestions: make(map[string]string),
	}

	for _, ref := range query.Measures {
		bare := models.BareFieldName(ref)
		if snap.HasMeasure(bare) {
			continue
		}
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("unknown measure: %s", ref))
		if suggestion, ok := closest(bare, snap.MeasureNames()); ok {
			result.Suggestions[ref] = snap.Qualify(suggestion)
		}
	}

	for _, ref := range query.Dimensions {
		bare := models.BareFieldName(ref)
		if snap.HasDimension(bare) {
			continue
		}
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("unknown dimension: %s", ref))
		if suggestion, ok := closest(bare, snap.DimensionNames()); ok {
			result.Suggestions[ref] = snap.Qualify(suggestion)
		}
	}

	for _, td := range query.TimeDimensions {
		bare := models.BareFieldName(td.Dimension)
		if snap.HasTimeDimension(bare) {
			continue
		}
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("unknown time dimension: %s", td.Dimension))
		if suggestion, ok := closest(bare, snap.TimeDimensionNames()); ok {
			result.Suggestions[td.Dimension] = snap.Qualify(suggestion)
		}
	}

	for _, f := range query.Filters {
		bare := models.BareFieldName(f.Member)
		if snap.HasMeasure(bare) || snap.HasDimension(bare) {
			continue
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("filter references unknown member: %s", f.Member))
		candidates := append(snap.DimensionNames(), snap.MeasureNames()...)
		if suggestion, ok := closest(bare, candidates); ok {
			result.Suggestions[f.Member] = snap.Qualify(suggestion)
		}
	}

	return result
}

// closest finds the candidate with the smallest edit distance within the
// suggestion threshold. Comparison is case-insensitive; ties keep the
// first candidate in sorted order, so results are stable.
func closest(name string, candidates []string) (string, bool) {
	lower := strings.ToLower(name)
	best := ""
	bestDist := suggestionThreshold + 1

	for _, candidate := range candidates {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(candidate))
		if dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}

	return best, bestDist <= suggestionThreshold
}
