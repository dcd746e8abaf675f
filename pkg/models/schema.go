package models

import (
	"sort"
	"time"
)

// FieldKind distinguishes categorical from time dimensions.
type FieldKind string

const (
	FieldKindCategorical FieldKind = "categorical"
	FieldKindTime        FieldKind = "time"
)

// FieldInfo describes a single measure or dimension exposed by the
// semantic layer.
type FieldInfo struct {
	Name        string
	Title       string
	Description string
	Kind        FieldKind
}

// SchemaSnapshot is an immutable view of the semantic layer metadata at a
// point in time. Snapshots are replaced wholesale on refresh, never
// mutated, so a turn in flight always sees one consistent schema.
type SchemaSnapshot struct {
	ViewName   string
	Measures   map[string]FieldInfo
	Dimensions map[string]FieldInfo
	FetchedAt  time.Time
}

// HasMeasure reports whether the bare name is a known measure.
func (s *SchemaSnapshot) HasMeasure(name string) bool {
	_, ok := s.Measures[name]
	return ok
}

// HasDimension reports whether the bare name is a known dimension of any kind.
func (s *SchemaSnapshot) HasDimension(name string) bool {
	_, ok := s.Dimensions[name]
	return ok
}

// HasTimeDimension reports whether the bare name is a known time dimension.
func (s *SchemaSnapshot) HasTimeDimension(name string) bool {
	d, ok := s.Dimensions[name]
	return ok && d.Kind == FieldKindTime
}

// MeasureNames returns all measure names, sorted.
func (s *SchemaSnapshot) MeasureNames() []string {
	return sortedKeys(s.Measures)
}

// DimensionNames returns all dimension names, sorted.
func (s *SchemaSnapshot) DimensionNames() []string {
	return sortedKeys(s.Dimensions)
}

// TimeDimensionNames returns the names of time-kind dimensions, sorted.
func (s *SchemaSnapshot) TimeDimensionNames() []string {
	names := make([]string, 0, len(s.Dimensions))
	for name, d := range s.Dimensions {
		if d.Kind == FieldKindTime {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Qualify prefixes a bare field name with the view name.
func (s *SchemaSnapshot) Qualify(name string) string {
	if s.ViewName == "" {
		return name
	}
	return s.ViewName + "." + name
}

func sortedKeys(m map[string]FieldInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
