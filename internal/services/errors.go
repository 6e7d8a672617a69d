package services

import "errors"

var (
	// ErrRefreshFailed wraps a refresh pipeline failure that kept the
	// previous snapshot.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrNoData is returned by Export when there is nothing to write.
	ErrNoData = errors.New("no data to export")

	// ErrServiceUnavailable is returned when a dependency is not configured.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
