package domain

// GroupCount is one bar of a grouped count.
type GroupCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FilteredResult is everything the dashboard renders for one filter selection.
// It is recomputed from the snapshot on every request.
type FilteredResult struct {
	Count                int     `json:"count"`
	TotalParticipants    float64 `json:"total_participants"`
	TotalInstructorHours float64 `json:"total_instructor_hours"`
	AvgParticipants      float64 `json:"avg_participants"`
	ELearningCount       int     `json:"e_learning_count"`
	PJJCount             int     `json:"pjj_count"`

	ByMonth           []GroupCount `json:"by_month"`
	ByMethod          []GroupCount `json:"by_method"`
	ByOrganizerTop10  []GroupCount `json:"by_organizer_top10"`
	ByEvaluationLevel []GroupCount `json:"by_evaluation_level,omitempty"`

	PreviewColumns []string   `json:"preview_columns"`
	PreviewRows    [][]string `json:"preview_rows"`
}

// Totals are the header figures computed over the unfiltered snapshot.
type Totals struct {
	Records              int     `json:"records"`
	TotalParticipants    float64 `json:"total_participants"`
	TotalInstructorHours float64 `json:"total_instructor_hours"`
}

// FilterOptions lists the selectable values for each filter dimension.
type FilterOptions struct {
	Months     []string `json:"months"`
	Organizers []string `json:"organizers"`
	Methods    []string `json:"methods"`
}
