package dataprocessing

import (
	"sort"

	"github.com/montanaflynn/stats"

	"kalpem/internal/config"
	"kalpem/pkg/contracts/domain"
)

// previewColumns is the display order of the table preview. Only columns
// present in the source (or derived by Normalize) are shown.
var previewColumns = []string{
	domain.ColProgramName,
	domain.ColStartDate,
	domain.ColEndDate,
	domain.ColMethod,
	domain.ColOrganizer,
	domain.ColTotalParticipants,
	domain.ColClassCount,
	domain.ColMonthName,
	domain.ColTotalInstructorHours,
}

// FilterAndAggregate narrows the record set with the filter selection and
// computes every dashboard figure from the resulting subset. The record
// set is not modified. An empty subset yields zero counts and empty groups.
func FilterAndAggregate(rs domain.RecordSet, fs domain.FilterSet) domain.FilteredResult {
	return Aggregate(ApplyFilter(rs.Records, fs), rs)
}

// Aggregate computes the dashboard figures for an already filtered subset.
// rs supplies the column presence used for optional figures.
func Aggregate(subset []domain.TrainingRecord, rs domain.RecordSet) domain.FilteredResult {
	result := domain.FilteredResult{
		Count:          len(subset),
		ByMonth:        []domain.GroupCount{},
		ByMethod:       []domain.GroupCount{},
		PreviewColumns: availablePreviewColumns(rs),
		PreviewRows:    [][]string{},
	}

	if len(subset) == 0 {
		result.ByOrganizerTop10 = []domain.GroupCount{}
		return result
	}

	participants := make(stats.Float64Data, 0, len(subset))
	hours := make(stats.Float64Data, 0, len(subset))
	for _, rec := range subset {
		participants = append(participants, rec.TotalParticipants)
		hours = append(hours, rec.TotalInstructorHours)

		switch rec.Method {
		case domain.MethodELearning:
			result.ELearningCount++
		case domain.MethodPJJ:
			result.PJJCount++
		}
	}

	if rs.HasColumn(domain.ColTotalParticipants) {
		result.TotalParticipants, _ = stats.Sum(participants)
		result.AvgParticipants, _ = stats.Mean(participants)
	}
	if rs.HasColumn(domain.ColTotalInstructorHours) {
		result.TotalInstructorHours, _ = stats.Sum(hours)
	}

	result.ByMonth = countByMonth(subset)
	result.ByMethod = CountBy(subset, func(r domain.TrainingRecord) string { return r.Method })
	result.ByOrganizerTop10 = topN(CountBy(subset, func(r domain.TrainingRecord) string { return r.Organizer }), config.TopOrganizers)
	if rs.HasColumn(domain.ColEvaluationLevel) {
		result.ByEvaluationLevel = CountBy(subset, func(r domain.TrainingRecord) string { return r.EvaluationLevel })
	}

	limit := config.PreviewRowLimit
	if len(subset) < limit {
		limit = len(subset)
	}
	for _, rec := range subset[:limit] {
		result.PreviewRows = append(result.PreviewRows, previewRow(rec, result.PreviewColumns))
	}

	return result
}

// countByMonth counts records per localized month in calendar order with
// zero-fill. Records with an unknown month are not counted.
func countByMonth(subset []domain.TrainingRecord) []domain.GroupCount {
	counts := make(map[string]int, len(domain.MonthNames))
	for _, rec := range subset {
		counts[rec.MonthName]++
	}

	out := make([]domain.GroupCount, 0, len(domain.MonthNames))
	for _, m := range domain.MonthNames {
		out = append(out, domain.GroupCount{Label: m, Count: counts[m]})
	}
	return out
}

// CountBy groups records by key, skipping empty keys, and orders the groups
// by count descending with ties kept in order of first appearance.
func CountBy(subset []domain.TrainingRecord, key func(domain.TrainingRecord) string) []domain.GroupCount {
	index := make(map[string]int)
	groups := []domain.GroupCount{}
	for _, rec := range subset {
		k := key(rec)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			groups[i].Count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, domain.GroupCount{Label: k, Count: 1})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

func topN(groups []domain.GroupCount, n int) []domain.GroupCount {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func availablePreviewColumns(rs domain.RecordSet) []string {
	cols := make([]string, 0, len(previewColumns))
	for _, c := range previewColumns {
		if c == domain.ColMonthName || rs.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func previewRow(rec domain.TrainingRecord, columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		switch c {
		case domain.ColProgramName:
			row[i] = rec.ProgramName
		case domain.ColStartDate:
			row[i] = FormatDate(rec.StartDate, PreviewDateLayout)
		case domain.ColEndDate:
			row[i] = FormatDate(rec.EndDate, PreviewDateLayout)
		case domain.ColMethod:
			row[i] = rec.Method
		case domain.ColOrganizer:
			row[i] = rec.Organizer
		case domain.ColTotalParticipants:
			row[i] = FormatThousands(rec.TotalParticipants)
		case domain.ColClassCount:
			row[i] = FormatOptionalNumber(rec.ClassCount)
		case domain.ColMonthName:
			row[i] = rec.MonthName
		case domain.ColTotalInstructorHours:
			row[i] = FormatThousands(rec.TotalInstructorHours)
		}
	}
	return row
}

// ComputeTotals returns the header figures over the whole record set.
func ComputeTotals(rs domain.RecordSet) domain.Totals {
	totals := domain.Totals{Records: rs.Len()}
	for _, rec := range rs.Records {
		totals.TotalParticipants += rec.TotalParticipants
		totals.TotalInstructorHours += rec.TotalInstructorHours
	}
	return totals
}

// BuildFilterOptions lists the selectable filter values: the fixed month
// table, and the distinct organizers and methods sorted as text.
func BuildFilterOptions(rs domain.RecordSet) domain.FilterOptions {
	return domain.FilterOptions{
		Months:     append([]string(nil), domain.MonthNames[:]...),
		Organizers: distinctSorted(rs.Records, func(r domain.TrainingRecord) string { return r.Organizer }),
		Methods:    distinctSorted(rs.Records, func(r domain.TrainingRecord) string { return r.Method }),
	}
}

func distinctSorted(records []domain.TrainingRecord, key func(domain.TrainingRecord) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
