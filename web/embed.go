// Package web embeds the static council page and serves it as a single-page
// application.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPAHandler serves the embedded council frontend. Paths that match an
// embedded file are served directly; everything else falls back to
// index.html so client-side routes resolve.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: embedded dist is missing: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}

		if _, err := fs.Stat(assets, name); err != nil {
			// SPA fallback. index.html stays uncached so deploys take
			// effect on the next load.
			w.Header().Set("Cache-Control", "no-cache")
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}
