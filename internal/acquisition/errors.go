package acquisition

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceMissing is returned by a file source whose file does not exist.
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrSourceEmpty is returned by a file source that holds no header row.
	ErrSourceEmpty = errors.New("source file is empty")

	// ErrAllSourcesFailed is recorded when no source produced a table.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrPayloadTooLarge is returned when a remote body exceeds the limit.
	ErrPayloadTooLarge = errors.New("remote payload too large")
)

// StatusError reports a non-2xx response from the remote link.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d for %s", e.StatusCode, e.URL)
}
