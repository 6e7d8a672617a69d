// Package dataprocessing turns spreadsheet tables into training records and
// computes the dashboard figures from them.
//
// # Pipeline
//
//	bytes → ReadWorkbook / ReadDelimited → RawTable → Normalize → RecordSet
//	RecordSet + FilterSet → FilterAndAggregate → FilteredResult
//
// Normalize never fails: unparsable dates become nil and non-numeric counts
// become 0. Dates are read with ParseLocalizedDate, which understands
// localized month names ("17 Agustus 1945"), spreadsheet serial numbers and
// common generic layouts.
//
// # Filtering
//
// Filter is the one predicate used by both the dashboard and the workbook
// export, so the two always select the same records for the same
// selection. Dimensions combine with AND; values within a dimension with OR.
//
// Example:
//
//	table, err := dataprocessing.ReadWorkbookFile("data/kalpem_backup.xlsx")
//	if err != nil {
//	    return err
//	}
//	rs := dataprocessing.Normalize(table)
//	result := dataprocessing.FilterAndAggregate(rs, domain.FilterSet{
//	    Methods: []string{domain.MethodELearning},
//	})
package dataprocessing
