package acquisition

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kalpem/internal/dataprocessing"
	"kalpem/pkg/contracts/domain"
)

// SheetsSource reads the training calendar from a Google Sheets range.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	timeout       time.Duration
}

// NewSheetsSource creates a Sheets API client. Without extra options the
// service account credentials file is used with a read-only scope.
func NewSheetsSource(ctx context.Context, spreadsheetID, readRange, credentialsFile string, timeout time.Duration, opts ...option.ClientOption) (*SheetsSource, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope),
		}
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		timeout:       timeout,
	}, nil
}

// Name implements Source
func (s *SheetsSource) Name() string { return SourceSheets }

// Fetch reads the configured range. The first row is the header.
func (s *SheetsSource) Fetch(ctx context.Context) (domain.RawTable, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read from sheets: %w", err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}

	return dataprocessing.TableFromRows(rows), nil
}
