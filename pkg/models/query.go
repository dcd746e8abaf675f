package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CubeQuery is the structured query shape consumed by the Cube REST API.
// Field references are qualified with the view name ("View.field").
type CubeQuery struct {
	Measures       []string        `json:"measures"`
	Dimensions     []string        `json:"dimensions,omitempty"`
	TimeDimensions []TimeDimension `json:"timeDimensions,omitempty"`
	Filters        []Filter        `json:"filters,omitempty"`
	Limit          *int            `json:"limit,omitempty"`
}

// TimeDimension configures time-windowed grouping.
type TimeDimension struct {
	Dimension   string    `json:"dimension"`
	Granularity string    `json:"granularity,omitempty"`
	DateRange   DateRange `json:"dateRange,omitempty"`
}

// Filter restricts a query by a member value.
type Filter struct {
	Member   string   `json:"member"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// DateRange accepts both forms Cube understands: a relative string
// ("last month") or a two-element array of ISO dates. LLM output uses
// either interchangeably, so unmarshalling must tolerate both.
type DateRange struct {
	Relative string
	From     string
	To       string
}

// IsZero reports whether no range is set.
func (d DateRange) IsZero() bool {
	return d.Relative == "" && d.From == "" && d.To == ""
}

// String renders the range for restatement to the user.
func (d DateRange) String() string {
	if d.Relative != "" {
		return d.Relative
	}
	if d.From != "" || d.To != "" {
		return fmt.Sprintf("%s to %s", d.From, d.To)
	}
	return "all time"
}

// MarshalJSON emits the form Cube expects: a bare string for relative
// ranges, a two-element array for explicit ones, nothing otherwise.
func (d DateRange) MarshalJSON() ([]byte, error) {
	if d.Relative != "" {
		return json.Marshal(d.Relative)
	}
	if d.From != "" || d.To != "" {
		return json.Marshal([2]string{d.From, d.To})
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a string, a [from, to] array, or null.
func (d *DateRange) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*d = DateRange{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DateRange{Relative: s}
		return nil
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		dr := DateRange{}
		if len(pair) > 0 {
			dr.From = pair[0]
		}
		if len(pair) > 1 {
			dr.To = pair[1]
		}
		*d = dr
		return nil
	}

	return fmt.Errorf("dateRange must be a string or array of strings, got %s", trimmed)
}

// FieldReferences returns every qualified field reference in the query,
// in a stable order: measures, dimensions, time dimensions, filter members.
func (q *CubeQuery) FieldReferences() []string {
	refs := make([]string, 0, len(q.Measures)+len(q.Dimensions)+len(q.TimeDimensions)+len(q.Filters))
	refs = append(refs, q.Measures...)
	refs = append(refs, q.Dimensions...)
	for _, td := range q.TimeDimensions {
		refs = append(refs, td.Dimension)
	}
	for _, f := range q.Filters {
		refs = append(refs, f.Member)
	}
	return refs
}

// BareFieldName strips a cube/view prefix from a qualified reference.
// "FactOrders.tickets_sold" becomes "tickets_sold"; an unqualified name
// passes through unchanged.
func BareFieldName(field string) string {
	if idx := strings.IndexByte(field, '.'); idx >= 0 {
		return field[idx+1:]
	}
	return field
}
