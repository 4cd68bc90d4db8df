package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

const indexFile = "index.html"

func FileServerHandler() http.Handler {
	return http.FileServer(http.FS(StaticFilesFS()))
}

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}

	return subFS
}

// serveFileHandler serves the embedded UI. Unknown paths get index.html so
// client-side routes survive a reload; /api/ paths never do.
func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, RouteAPIPrefix) {
			http.NotFound(w, r)
			return
		}

		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath != "" && !strings.HasSuffix(filePath, "/") {
			if _, err := fs.Stat(StaticFilesFS(), filePath); err == nil {
				s.fileServer.ServeHTTP(w, r)
				return
			} else if !errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "404 - Page Not Found", http.StatusNotFound)
				return
			}
		}

		index, err := fs.ReadFile(StaticFilesFS(), indexFile)
		if err != nil {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	}
}
