package dataprocessing

import (
	"kalpem/pkg/contracts/domain"
)

// Filter is the single record predicate shared by the dashboard
// aggregation and the workbook export. A record passes when it matches
// every constrained dimension; within a dimension any listed value matches.
type Filter struct {
	months     map[string]struct{}
	organizers map[string]struct{}
	methods    map[string]struct{}
}

// NewFilter builds the predicate for a filter selection.
func NewFilter(fs domain.FilterSet) Filter {
	return Filter{
		months:     toSet(fs.Months),
		organizers: toSet(fs.Organizers),
		methods:    toSet(fs.Methods),
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Match reports whether the record passes all constrained dimensions.
// Organizer and method are compared as text.
func (f Filter) Match(rec domain.TrainingRecord) bool {
	return matches(f.months, rec.MonthName) &&
		matches(f.organizers, rec.Organizer) &&
		matches(f.methods, rec.Method)
}

func matches(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[value]
	return ok
}

// ApplyFilter returns the records passing the filter, in original order.
// The input slice is never modified.
func ApplyFilter(records []domain.TrainingRecord, fs domain.FilterSet) []domain.TrainingRecord {
	if fs.IsEmpty() {
		out := make([]domain.TrainingRecord, len(records))
		copy(out, records)
		return out
	}

	f := NewFilter(fs)
	out := make([]domain.TrainingRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
