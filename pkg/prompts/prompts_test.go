package prompts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

func promptSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		ViewName: "EventsAnalytics",
		Measures: map[string]models.FieldInfo{
			"total_revenue": {Name: "total_revenue", Description: "Gross revenue"},
			"tickets_sold":  {Name: "tickets_sold", Title: "Tickets Sold"},
		},
		Dimensions: map[string]models.FieldInfo{
			"city":       {Name: "city", Kind: models.FieldKindCategorical},
			"order_date": {Name: "order_date", Kind: models.FieldKindTime},
		},
		FetchedAt: time.Now(),
	}
}

func TestSchemaOverview(t *testing.T) {
	overview := SchemaOverview(promptSnapshot())

	assert.Contains(t, overview, "EventsAnalytics.total_revenue: Gross revenue")
	assert.Contains(t, overview, "EventsAnalytics.tickets_sold: Tickets Sold")
	assert.Contains(t, overview, "EventsAnalytics.city")
	// Time dimensions appear in their own section, not among the
	// categorical ones.
	assert.Contains(t, overview, "Time dimensions:\n- EventsAnalytics.order_date")
}

func TestAssessment_IncludesResolvedAspects(t *testing.T) {
	cctx := models.NewConversationContext("s1")
	cctx.ResolvedAspects[models.AmbiguityTime] = "last month"

	prompt := Assessment("show revenue", cctx, promptSnapshot())

	assert.Contains(t, prompt, "show revenue")
	assert.Contains(t, prompt, "time_specification: last month")
	assert.Contains(t, prompt, "do NOT flag them again")
	assert.Contains(t, prompt, `"unsupportedCriterion"`)
}

func TestClarificationQuestion_Time(t *testing.T) {
	question, suggestions := ClarificationQuestion(models.AmbiguityTime, promptSnapshot())
	assert.Contains(t, question, "time period")
	assert.Contains(t, suggestions, "last month")
	assert.Contains(t, suggestions, "all time")
}

func TestClarificationQuestion_GroupingNamesRealFields(t *testing.T) {
	_, suggestions := ClarificationQuestion(models.AmbiguityGrouping, promptSnapshot())
	assert.Contains(t, suggestions, "by city")
	assert.Contains(t, suggestions, "no grouping, just the total")
}

func TestUnsupportedCriterionQuestion(t *testing.T) {
	question, suggestions := UnsupportedCriterionQuestion("revenue by region")
	assert.Contains(t, question, "revenue by region")
	assert.Contains(t, question, "proceed without")
	assert.NotEmpty(t, suggestions)
}

func TestConfirmationMessage(t *testing.T) {
	query := &models.CubeQuery{
		Measures:   []string{"EventsAnalytics.total_revenue"},
		Dimensions: []string{"EventsAnalytics.city"},
		TimeDimensions: []models.TimeDimension{
			{Dimension: "EventsAnalytics.order_date", Granularity: "month", DateRange: models.DateRange{Relative: "last year"}},
		},
		Filters: []models.Filter{
			{Member: "EventsAnalytics.order_status", Operator: "equals", Values: []string{"completed"}},
		},
	}

	message := ConfirmationMessage(query)

	assert.Contains(t, message, "total_revenue")
	assert.Contains(t, message, "grouped by city")
	assert.Contains(t, message, "over last year per month")
	assert.Contains(t, message, "where order_status equals completed")
	assert.Contains(t, message, "Shall I run it?")
}

func TestConfirmationMessage_NoGrouping(t *testing.T) {
	query := &models.CubeQuery{Measures: []string{"EventsAnalytics.total_revenue"}}
	assert.Contains(t, ConfirmationMessage(query), "no grouping")
}

func TestConstruction_SchemaAndFormat(t *testing.T) {
	resolved := map[models.AmbiguityKind]string{
		models.AmbiguityTime: "last month",
	}

	prompt := Construction("tickets sold", resolved, promptSnapshot())

	assert.Contains(t, prompt, "tickets sold")
	assert.Contains(t, prompt, "time_specification: last month")
	assert.Contains(t, prompt, "EventsAnalytics.total_revenue")
	assert.Contains(t, prompt, `"timeDimensions"`)
	assert.Contains(t, prompt, `prefixed with "EventsAnalytics."`)
}
