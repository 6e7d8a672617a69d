package config

import "time"

// Application constants
const (
	AppName    = "Kalender Pembelajaran Dashboard"
	AppVersion = "1.2.0"

	// Source defaults
	DefaultFetchTimeout    = 30 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
	BackupXLSXName         = "kalpem_backup.xlsx"
	BackupCSVName          = "kalpem_backup.csv"
	DefaultCSVName         = "kalpem.csv"

	// Dashboard
	PreviewRowLimit  = 15
	TopOrganizers    = 10
	StatusErrorChars = 30

	// Export
	ExportFilePrefix = "Dashboard_Pelatihan_"
	ExportTimeLayout = "20060102_150405"
	ExportMIMEType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// WebSocket
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
