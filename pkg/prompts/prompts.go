package prompts

import (
	"fmt"
	"strings"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// System messages for the three generation steps.
const (
	SystemAssessment = "You are an analytics query assistant. You classify natural-language " +
		"analytics requests against a fixed schema and respond with JSON only."

	SystemExtraction = "You extract one specific piece of information from a user's reply. " +
		"Respond with JSON only."

	SystemConstruction = "You translate resolved analytics requests into Cube query JSON. " +
		"Respond with a single JSON object only, no prose."
)

// RephrasingPrompt is the rejection-recovery message. The session context
// has been cleared by the time this is shown.
const RephrasingPrompt = "No problem, let's start over. Please rephrase your request - " +
	"for example, name the metric you want, the time period, and how you'd like it broken down."

// SchemaOverview enumerates the snapshot's fields with their
// descriptions, in the fully qualified form the model must use.
func SchemaOverview(snap *models.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("Measures:\n")
	for _, name := range snap.MeasureNames() {
		writeField(&b, snap.Qualify(name), snap.Measures[name])
	}

	b.WriteString("\nDimensions:\n")
	for _, name := range snap.DimensionNames() {
		info := snap.Dimensions[name]
		if info.Kind == models.FieldKindTime {
			continue
		}
		writeField(&b, snap.Qualify(name), info)
	}

	b.WriteString("\nTime dimensions:\n")
	for _, name := range snap.TimeDimensionNames() {
		writeField(&b, snap.Qualify(name), snap.Dimensions[name])
	}

	return b.String()
}

func writeField(b *strings.Builder, qualified string, info models.FieldInfo) {
	switch {
	case info.Description != "":
		fmt.Fprintf(b, "- %s: %s\n", qualified, info.Description)
	case info.Title != "":
		fmt.Fprintf(b, "- %s: %s\n", qualified, info.Title)
	default:
		fmt.Fprintf(b, "- %s\n", qualified)
	}
}

// Assessment builds the ambiguity-classification prompt. The model
// answers with a JSON object listing ambiguity flags still unresolved
// after accounting for the aspects the user already clarified, plus any
// requested criterion the schema cannot support at all.
func Assessment(userText string, ctx *models.ConversationContext, snap *models.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("A user asked the following analytics question:\n\n")
	b.WriteString(userText)
	b.WriteString("\n\nAvailable schema:\n\n")
	b.WriteString(SchemaOverview(snap))

	if len(ctx.ResolvedAspects) > 0 {
		b.WriteString("\nThe user has already clarified these aspects - do NOT flag them again:\n")
		for _, kind := range models.AmbiguityPriority {
			if v, ok := ctx.ResolvedAspects[kind]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", kind, v)
			}
		}
	}

	if len(ctx.Turns) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range ctx.Turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	b.WriteString(`
Decide which aspects of the request are ambiguous. The possible flags are:
- "time_specification": no time period stated or implied
- "grouping_granularity": unclear how results should be grouped or bucketed
- "filter_criteria": a mentioned restriction is too vague to become a filter
- "measure_selection": unclear which metric is wanted
- "dimension_selection": unclear which attribute is wanted

If the user asks for something the schema has no field for at all (for
example a geographic breakdown when no such dimension exists), report it
in "unsupportedCriterion" instead of flagging an ambiguity.

Respond with exactly this JSON shape:
{"ambiguities": ["time_specification"], "unsupportedCriterion": ""}

An empty "ambiguities" array means the request is fully specified.
`)

	return b.String()
}

// AssessmentResult is the JSON shape the assessment step answers with.
type AssessmentResult struct {
	Ambiguities          []models.AmbiguityKind `json:"ambiguities"`
	UnsupportedCriterion string                 `json:"unsupportedCriterion"`
}

// Extraction builds the prompt that pulls a single clarification value
// out of the user's reply.
func Extraction(kind models.AmbiguityKind, userReply, originalQuery string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The user originally asked: %s\n", originalQuery)
	fmt.Fprintf(&b, "They were asked to clarify the aspect %q and replied:\n\n%s\n", kind, userReply)
	b.WriteString(`
Extract the clarified value as a short phrase usable in a query
description (for example "last month", "by city", "only completed orders").

Respond with exactly this JSON shape:
{"value": "last month"}
`)

	return b.String()
}

// ExtractionResult is the JSON shape the extraction step answers with.
type ExtractionResult struct {
	Value string `json:"value"`
}

// Construction builds the final generation prompt that turns the
// original request plus resolved aspects into Cube query JSON.
func Construction(originalQuery string, resolved map[models.AmbiguityKind]string, snap *models.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("Translate this analytics request into a Cube query.\n\nRequest: ")
	b.WriteString(originalQuery)
	b.WriteString("\n")

	if len(resolved) > 0 {
		b.WriteString("\nClarified aspects:\n")
		for _, kind := range models.AmbiguityPriority {
			if v, ok := resolved[kind]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", kind, v)
			}
		}
	}

	b.WriteString("\nAvailable schema:\n\n")
	b.WriteString(SchemaOverview(snap))

	b.WriteString(`
Respond with a single JSON object in this shape:
{
  "measures": ["` + snap.ViewName + `.measure_name"],
  "dimensions": ["` + snap.ViewName + `.dimension_name"],
  "timeDimensions": [{"dimension": "` + snap.ViewName + `.time_field", "granularity": "day", "dateRange": "last month"}],
  "filters": [{"member": "` + snap.ViewName + `.field", "operator": "equals", "values": ["value"]}]
}

Use only fields from the schema above, always prefixed with "` + snap.ViewName + `.".
Omit "dimensions", "timeDimensions", or "filters" when the request needs none.
`)

	return b.String()
}
