// Package web serves a prebuilt frontend from a directory as a single-page
// application (SPA).
//
// When no UI directory is configured the server exposes only the API, and the
// frontend dev server is used instead.
package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler returns an http.Handler that serves static files from dir, and
// falls back to index.html for any path that doesn't match a file (SPA
// client-side routing).
func SPAHandler(dir string) http.Handler {
	return spaHandler(os.DirFS(dir))
}

func spaHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Unknown path: let the client-side router handle it.
		index, err := fs.ReadFile(root, "index.html")
		if err != nil {
			slog.Debug("web: index.html not available", "error", err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(index); err != nil {
			slog.Debug("web: failed to write index.html", "error", err)
		}
	})
}
