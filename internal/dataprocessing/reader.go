package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"kalpem/pkg/contracts/domain"
)

var (
	// ErrUnsupportedFormat is returned for payloads that are neither an
	// OOXML workbook nor a legacy BIFF workbook.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

	// ErrNoSheets is returned for workbooks without a readable first sheet.
	ErrNoSheets = errors.New("workbook has no sheets")
)

var (
	zipMagic  = []byte{0x50, 0x4B, 0x03, 0x04}
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// ReadWorkbook parses spreadsheet bytes into a raw table using the first
// sheet's first row as the header. Both .xlsx and legacy .xls payloads are
// accepted; the format is detected from the leading magic bytes.
func ReadWorkbook(data []byte) (domain.RawTable, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(data)
	case bytes.HasPrefix(data, ole2Magic):
		return readXLS(data)
	default:
		return domain.RawTable{}, ErrUnsupportedFormat
	}
}

// ReadWorkbookFile reads and parses a spreadsheet from disk.
func ReadWorkbookFile(path string) (domain.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	table, err := ReadWorkbook(data)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to parse workbook %s: %w", path, err)
	}
	return table, nil
}

func readXLSX(data []byte) (domain.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.RawTable{}, ErrNoSheets
	}

	// Raw values keep date cells as serial numbers, which the date parser
	// understands, instead of locale-dependent display text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return TableFromRows(rows), nil
}

func readXLS(data []byte) (table domain.RawTable, err error) {
	// The BIFF reader panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			table, err = domain.RawTable{}, fmt.Errorf("failed to read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return domain.RawTable{}, ErrNoSheets
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return domain.RawTable{}, ErrNoSheets
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return TableFromRows(rows), nil
}

// ReadDelimited parses comma-separated text with a header row. A UTF-8 BOM
// is ignored and rows may have fewer fields than the header.
func ReadDelimited(r io.Reader) (domain.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read delimited data: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to parse delimited data: %w", err)
	}
	return TableFromRows(rows), nil
}

// ReadDelimitedFile reads and parses a delimited file from disk.
func ReadDelimitedFile(path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadDelimited(f)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// TableFromRows splits off the first row as the header and names its
// columns.
func TableFromRows(rows [][]string) domain.RawTable {
	if len(rows) == 0 {
		return domain.RawTable{}
	}
	return domain.RawTable{
		Headers: headerNames(rows[0]),
		Rows:    rows[1:],
	}
}

// headerNames trims header cells, names blank ones "Unnamed: <index>" and
// suffixes repeats with ".<n>", the way spreadsheet exports of indexed
// tables label their columns.
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}
