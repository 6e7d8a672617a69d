package api

import (
	"kalpem/pkg/contracts/domain"
)

// DashboardResponse is the payload of GET /api/dashboard.
type DashboardResponse struct {
	Result   domain.FilteredResult `json:"result"`
	Totals   domain.Totals         `json:"totals"`
	Status   domain.SourceStatus   `json:"status"`
	Filters  domain.FilterSet      `json:"filters"`
	Snapshot SnapshotInfo          `json:"snapshot"`
}

// SnapshotInfo identifies the snapshot a response was computed from.
type SnapshotInfo struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
	Digest  string `json:"digest"`
	Records int    `json:"records"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Status      domain.SourceStatus `json:"status"`
	Snapshot    SnapshotInfo        `json:"snapshot"`
	LastUpdated string              `json:"last_updated"`
}

// RefreshResponse is the payload of POST /api/refresh.
type RefreshResponse struct {
	Status   domain.SourceStatus `json:"status"`
	Snapshot SnapshotInfo        `json:"snapshot"`
}

// NewSnapshotInfo summarizes a snapshot.
func NewSnapshotInfo(s *domain.Snapshot) SnapshotInfo {
	if s == nil {
		return SnapshotInfo{}
	}
	return SnapshotInfo{
		ID:      s.ID,
		Version: s.Version,
		Digest:  s.Digest,
		Records: s.Records.Len(),
	}
}
