// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the data pipeline packages
// (acquisition, dataprocessing, exporter, charts).
//
// # Snapshot lifecycle
//
// DashboardService holds the current domain.Snapshot behind an atomic
// pointer. A refresh acquires the raw table, normalizes it and publishes
// a brand-new snapshot with the next version number; nothing ever
// mutates a published snapshot. Readers take the pointer once per
// request, so a request never sees half of one snapshot and half of
// another.
//
// Refreshes are single-flight: the startup load, the Refresher ticker and
// manual POST /api/refresh calls that overlap share one pipeline run and
// all receive its snapshot.
//
// If the pipeline itself fails, the previous records are republished with
// status "Error" and the first 30 characters of the failure message.
//
// # Available Services
//
//	- DashboardService: snapshot ownership, filtering, export, charts
//	- Refresher: periodic refresh trigger
//	- HealthService: liveness, readiness and version information
//
// # Testing
//
// Collaborators are small interfaces (Acquirer, Exporter, ChartRenderer,
// SnapshotNotifier) so tests substitute testify mocks or stubs.
package services
