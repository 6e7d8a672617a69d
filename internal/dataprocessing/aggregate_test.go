package dataprocessing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpem/pkg/contracts/domain"
)

var allColumns = []string{
	domain.ColProgramName, domain.ColStartDate, domain.ColEndDate, domain.ColMethod,
	domain.ColOrganizer, domain.ColTotalParticipants, domain.ColTotalInstructorHours,
	domain.ColClassCount, domain.ColEvaluationLevel,
}

// hundredRecords returns 100 records, 40 of them E-Learning and 25 PJJ.
func hundredRecords() domain.RecordSet {
	records := make([]domain.TrainingRecord, 0, 100)
	for i := 0; i < 100; i++ {
		method := "Klasikal"
		switch {
		case i < 40:
			method = domain.MethodELearning
		case i < 65:
			method = domain.MethodPJJ
		}
		month := i%12 + 1
		start := time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		records = append(records, domain.TrainingRecord{
			ProgramName:          fmt.Sprintf("Program %d", i),
			StartDate:            &start,
			Method:               method,
			Organizer:            fmt.Sprintf("Unit %d", i%15),
			TotalParticipants:    10,
			TotalInstructorHours: 2,
			EvaluationLevel:      fmt.Sprintf("Level %d", i%4+1),
			MonthNumber:          month,
			MonthName:            domain.MonthName(month),
			Year:                 2024,
		})
	}
	return domain.RecordSet{Records: records, Columns: allColumns}
}

func TestFilterAndAggregateMethodScenario(t *testing.T) {
	result := FilterAndAggregate(hundredRecords(), domain.FilterSet{Methods: []string{domain.MethodELearning}})

	assert.Equal(t, 40, result.Count)
	assert.Equal(t, 40, result.ELearningCount)
	assert.Zero(t, result.PJJCount)
	assert.Equal(t, 400.0, result.TotalParticipants)
	assert.Equal(t, 80.0, result.TotalInstructorHours)
	assert.Equal(t, 10.0, result.AvgParticipants)
	assert.Equal(t, []domain.GroupCount{{Label: domain.MethodELearning, Count: 40}}, result.ByMethod)
	assert.Len(t, result.PreviewRows, 15)
}

func TestFilterAndAggregateUnfiltered(t *testing.T) {
	result := FilterAndAggregate(hundredRecords(), domain.FilterSet{})

	assert.Equal(t, 100, result.Count)
	assert.Equal(t, 40, result.ELearningCount)
	assert.Equal(t, 25, result.PJJCount)

	require.Len(t, result.ByMonth, 12)
	total := 0
	for i, g := range result.ByMonth {
		assert.Equal(t, domain.MonthNames[i], g.Label)
		total += g.Count
	}
	assert.Equal(t, 100, total)

	assert.Equal(t, []domain.GroupCount{
		{Label: domain.MethodELearning, Count: 40},
		{Label: "Klasikal", Count: 35},
		{Label: domain.MethodPJJ, Count: 25},
	}, result.ByMethod)

	require.Len(t, result.ByOrganizerTop10, 10)
	assert.Equal(t, domain.GroupCount{Label: "Unit 0", Count: 7}, result.ByOrganizerTop10[0])

	require.Len(t, result.ByEvaluationLevel, 4)
	assert.Equal(t, 25, result.ByEvaluationLevel[0].Count)
}

func TestAggregateByMonthZeroFill(t *testing.T) {
	rs := hundredRecords()
	result := FilterAndAggregate(rs, domain.FilterSet{Months: []string{"Maret"}})

	require.Len(t, result.ByMonth, 12)
	for _, g := range result.ByMonth {
		if g.Label == "Maret" {
			assert.Equal(t, result.Count, g.Count)
		} else {
			assert.Zero(t, g.Count, g.Label)
		}
	}
}

func TestAggregateEmptySubset(t *testing.T) {
	result := FilterAndAggregate(hundredRecords(), domain.FilterSet{Organizers: []string{"Tidak Ada"}})

	assert.Zero(t, result.Count)
	assert.Zero(t, result.TotalParticipants)
	assert.Zero(t, result.TotalInstructorHours)
	assert.Zero(t, result.AvgParticipants)
	assert.Zero(t, result.ELearningCount)
	assert.Zero(t, result.PJJCount)
	assert.Empty(t, result.ByMonth)
	assert.Empty(t, result.ByMethod)
	assert.Empty(t, result.ByOrganizerTop10)
	assert.Empty(t, result.ByEvaluationLevel)
	assert.Empty(t, result.PreviewRows)
	assert.NotEmpty(t, result.PreviewColumns)
}

func TestAggregateOptionalColumns(t *testing.T) {
	rs := hundredRecords()
	rs.Columns = []string{domain.ColProgramName, domain.ColMethod}

	result := FilterAndAggregate(rs, domain.FilterSet{})

	assert.Zero(t, result.TotalParticipants)
	assert.Zero(t, result.AvgParticipants)
	assert.Zero(t, result.TotalInstructorHours)
	assert.Nil(t, result.ByEvaluationLevel)
	assert.Equal(t, []string{domain.ColProgramName, domain.ColMethod, domain.ColMonthName}, result.PreviewColumns)
	assert.Len(t, result.PreviewRows[0], 3)
}

func TestPreviewRowFormatting(t *testing.T) {
	start := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	classes := 3.0
	rs := domain.RecordSet{
		Columns: allColumns,
		Records: []domain.TrainingRecord{{
			ProgramName:          "Pelatihan Anggaran",
			StartDate:            &start,
			Method:               domain.MethodPJJ,
			Organizer:            "Pusdiklat A",
			TotalParticipants:    1234,
			TotalInstructorHours: 1500.7,
			ClassCount:           &classes,
			MonthName:            "Januari",
		}},
	}

	result := FilterAndAggregate(rs, domain.FilterSet{})
	require.Len(t, result.PreviewRows, 1)

	assert.Equal(t, []string{
		"Pelatihan Anggaran", "05 Jan 2024", "", "PJJ", "Pusdiklat A", "1,234", "3", "Januari", "1,500",
	}, result.PreviewRows[0])
}

func TestCountByTieOrder(t *testing.T) {
	records := []domain.TrainingRecord{
		{Method: "B"}, {Method: "A"}, {Method: ""}, {Method: "A"}, {Method: "B"}, {Method: "C"},
	}

	got := CountBy(records, func(r domain.TrainingRecord) string { return r.Method })

	assert.Equal(t, []domain.GroupCount{
		{Label: "B", Count: 2},
		{Label: "A", Count: 2},
		{Label: "C", Count: 1},
	}, got)
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(hundredRecords())

	assert.Equal(t, domain.Totals{Records: 100, TotalParticipants: 1000, TotalInstructorHours: 200}, totals)
	assert.Equal(t, domain.Totals{}, ComputeTotals(domain.RecordSet{}))
}

func TestBuildFilterOptions(t *testing.T) {
	rs := domain.RecordSet{Records: []domain.TrainingRecord{
		{Organizer: "Pusdiklat B", Method: "PJJ"},
		{Organizer: "Pusdiklat A", Method: ""},
		{Organizer: "Pusdiklat B", Method: "E-Learning"},
		{Organizer: "", Method: "PJJ"},
	}}

	opts := BuildFilterOptions(rs)

	assert.Equal(t, domain.MonthNames[:], opts.Months)
	assert.Equal(t, []string{"Pusdiklat A", "Pusdiklat B"}, opts.Organizers)
	assert.Equal(t, []string{"E-Learning", "PJJ"}, opts.Methods)
}
