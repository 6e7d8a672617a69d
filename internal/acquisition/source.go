package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"kalpem/internal/dataprocessing"
	"kalpem/pkg/contracts/domain"
)

// Source names used in status reporting and metrics.
const (
	SourceRemote     = "remote"
	SourceSheets     = "sheets"
	SourceBackupXLSX = "backup_xlsx"
	SourceBackupCSV  = "backup_csv"
	SourceDefault    = "default"
	SourceNone       = "none"
)

// maxRemoteBytes bounds the size of a downloaded spreadsheet.
const maxRemoteBytes = 64 << 20

// Source produces a raw table from one location.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (domain.RawTable, error)
}

// RemoteSource downloads a spreadsheet over HTTP.
type RemoteSource struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewRemoteSource creates a remote source. Google Drive "view" links are
// rewritten to their direct download form. A nil client uses a default one.
func NewRemoteSource(link string, timeout time.Duration, client *http.Client) *RemoteSource {
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteSource{
		url:     DriveDownloadURL(link),
		client:  client,
		timeout: timeout,
	}
}

// Name implements Source
func (s *RemoteSource) Name() string { return SourceRemote }

// URL returns the effective download URL.
func (s *RemoteSource) URL() string { return s.url }

// Fetch downloads and parses the spreadsheet within the configured timeout.
func (s *RemoteSource) Fetch(ctx context.Context) (domain.RawTable, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/vnd.ms-excel, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("remote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.RawTable{}, &StatusError{URL: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to read remote body: %w", err)
	}
	if len(body) > maxRemoteBytes {
		return domain.RawTable{}, ErrPayloadTooLarge
	}

	table, err := dataprocessing.ReadWorkbook(body)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to parse remote spreadsheet: %w", err)
	}
	return table, nil
}

var driveFilePath = regexp.MustCompile(`^/file/d/([A-Za-z0-9_-]+)`)

// DriveDownloadURL rewrites a Google Drive file link
// (https://drive.google.com/file/d/<id>/view?...) to the direct download
// endpoint. Other URLs are returned unchanged.
func DriveDownloadURL(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host != "drive.google.com" {
		return link
	}
	m := driveFilePath.FindStringSubmatch(u.Path)
	if m == nil {
		return link
	}
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(m[1])
}

// FileKind selects the parser for a file source.
type FileKind int

const (
	KindWorkbook FileKind = iota
	KindDelimited
)

// FileSource reads a local workbook or delimited file.
type FileSource struct {
	name string
	path string
	kind FileKind
}

// NewFileSource creates a file source.
func NewFileSource(name, path string, kind FileKind) *FileSource {
	return &FileSource{name: name, path: path, kind: kind}
}

// Name implements Source
func (s *FileSource) Name() string { return s.name }

// Path returns the file location.
func (s *FileSource) Path() string { return s.path }

// Fetch reads and parses the file. A missing file yields ErrSourceMissing
// and a file without a header row yields ErrSourceEmpty.
func (s *FileSource) Fetch(ctx context.Context) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawTable{}, fmt.Errorf("%s: %w", s.path, ErrSourceMissing)
		}
		return domain.RawTable{}, err
	}

	read := dataprocessing.ReadDelimitedFile
	if s.kind == KindWorkbook {
		read = dataprocessing.ReadWorkbookFile
	}

	table, err := read(s.path)
	if err != nil {
		return domain.RawTable{}, err
	}
	if table.IsEmpty() {
		return domain.RawTable{}, fmt.Errorf("%s: %w", s.path, ErrSourceEmpty)
	}
	return table, nil
}

// unavailableSource stands in for a remote whose client could not be built.
// Every fetch reports the construction error so the fallbacks take over.
type unavailableSource struct {
	name string
	err  error
}

func (s *unavailableSource) Name() string { return s.name }

func (s *unavailableSource) Fetch(ctx context.Context) (domain.RawTable, error) {
	return domain.RawTable{}, s.err
}
