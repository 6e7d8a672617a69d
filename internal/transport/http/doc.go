// Package http implements the HTTP handlers of the dashboard API.
//
// Handlers stay thin: they bind and validate query parameters, call the
// dashboard or health service, and render JSON, PNG, or XLSX responses.
// Errors are converted to RFC 7807 problem details by the shared
// apierrors.ErrorHandler.
//
// # Endpoints
//
//	GET  /api/dashboard           filtered KPIs, chart series and preview
//	GET  /api/filters             option lists for the three selects
//	GET  /api/status              connectivity label and last update text
//	POST /api/refresh             reacquire the calendar now
//	GET  /api/export              filtered workbook download (204 when empty)
//	GET  /api/charts/{name}.png   month, method, organizer or evaluation chart
//	GET  /api/health[/ready|/live] health probes
//	GET  /api/version             build information
//
// Filter parameters repeat: ?month=Januari&month=Maret&method=PJJ.
package http
