package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file locations used by the dashboard.
// Backups and the bundled default file live under DataDir.
type Paths struct {
	BaseDir         string
	DataDir         string
	LogsDir         string
	BackupXLSX      string
	BackupCSV       string
	DefaultCSV      string
	CredentialsFile string
}

// ResolvePaths turns the configured names into absolute paths.
func (c *Config) ResolvePaths() *Paths {
	base := c.Paths.BaseDir
	if base == "" {
		base, _ = os.Getwd()
	}

	abs := func(root, p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	dataDir := abs(base, c.Paths.DataDir)

	return &Paths{
		BaseDir:         base,
		DataDir:         dataDir,
		LogsDir:         abs(base, c.Paths.LogsDir),
		BackupXLSX:      abs(dataDir, c.Source.BackupXLSX),
		BackupCSV:       abs(dataDir, c.Source.BackupCSV),
		DefaultCSV:      abs(dataDir, c.Source.DefaultCSV),
		CredentialsFile: abs(base, c.Source.CredentialsFile),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths at startup.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("source_files",
			slog.String("backup_xlsx", p.BackupXLSX),
			slog.Bool("backup_xlsx_exists", FileExists(p.BackupXLSX)),
			slog.String("backup_csv", p.BackupCSV),
			slog.Bool("backup_csv_exists", FileExists(p.BackupCSV)),
			slog.String("default_csv", p.DefaultCSV),
			slog.Bool("default_csv_exists", FileExists(p.DefaultCSV)),
		))
}
