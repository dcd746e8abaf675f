package prompts

import (
	"fmt"
	"strings"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// ConfirmationMessage restates a proposed query in plain language so the
// user can confirm or reject the interpretation before anything executes.
func ConfirmationMessage(query *models.CubeQuery) string {
	var b strings.Builder

	b.WriteString("Here's what I understood: ")
	b.WriteString(humanList(bareAll(query.Measures)))

	if len(query.Dimensions) > 0 {
		fmt.Fprintf(&b, ", grouped by %s", humanList(bareAll(query.Dimensions)))
	} else {
		b.WriteString(", no grouping")
	}

	for _, td := range query.TimeDimensions {
		fmt.Fprintf(&b, ", over %s", td.DateRange.String())
		if td.Granularity != "" {
			fmt.Fprintf(&b, " per %s", td.Granularity)
		}
	}

	for _, f := range query.Filters {
		fmt.Fprintf(&b, ", where %s %s %s",
			models.BareFieldName(f.Member), f.Operator, humanList(f.Values))
	}

	b.WriteString(". Shall I run it?")
	return b.String()
}

func bareAll(refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = models.BareFieldName(ref)
	}
	return out
}

func humanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
