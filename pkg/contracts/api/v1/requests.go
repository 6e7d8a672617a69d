// Package api contains API contract definitions for the dashboard HTTP API.
// Version v1 represents the current stable API version.
package api

import (
	"kalpem/pkg/contracts/domain"
)

// FilterQuery carries the three filter dimensions from query parameters.
// Each parameter may repeat: ?method=PJJ&method=E-Learning.
type FilterQuery struct {
	Months     []string `query:"month" validate:"omitempty,max=12,dive,oneof=Januari Februari Maret April Mei Juni Juli Agustus September Oktober November Desember"`
	Organizers []string `query:"organizer" validate:"omitempty,max=500,dive,max=300"`
	Methods    []string `query:"method" validate:"omitempty,max=50,dive,max=100"`
}

// ToFilterSet converts the query to the domain filter set.
func (q FilterQuery) ToFilterSet() domain.FilterSet {
	return domain.FilterSet{
		Months:     q.Months,
		Organizers: q.Organizers,
		Methods:    q.Methods,
	}
}

// ChartRequest selects one chart image.
type ChartRequest struct {
	FilterQuery
	Name  string `param:"name" validate:"required,oneof=month method organizer evaluation"`
	Theme string `query:"theme" validate:"omitempty,oneof=light dark"`
}
