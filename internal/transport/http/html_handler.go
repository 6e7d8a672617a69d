package http

import (
	"io/fs"
	"log/slog"
	"net/http"
)

// ServeIndex serves the dashboard page from an embedded filesystem.
func ServeIndex(files fs.FS, name string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(files, name)
		if err != nil {
			logger.ErrorContext(r.Context(), "index page missing",
				slog.String("file", name),
				slog.String("error", err.Error()))
			http.Error(w, "Dashboard page not found", http.StatusNotFound)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	}
}
