package httpui

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

//go:embed dist/**
var embedded embed.FS

// apiPrefixes are never answered by the UI handler.
var apiPrefixes = []string{"/wallet/", "/healthz", "/metrics"}

// Handler serves the embedded dashboard page. Unknown paths fall back to
// index.html so client-side routes resolve.
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(embedded, "dist")
	if err != nil {
		return nil, err
	}

	_ = mime.AddExtensionType(".js", "application/javascript; charset=utf-8")
	_ = mime.AddExtensionType(".css", "text/css; charset=utf-8")
	_ = mime.AddExtensionType(".svg", "image/svg+xml")

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		p := path.Clean("/" + r.URL.Path)
		for _, prefix := range apiPrefixes {
			if strings.HasPrefix(p, prefix) {
				http.NotFound(w, r)
				return
			}
		}

		name := strings.TrimPrefix(p, "/")
		if name == "" {
			name = "index.html"
		}

		if exists(sub, name) {
			setCacheHeaders(w, name)
			fileServer.ServeHTTP(w, r)
			return
		}

		r2 := r.Clone(r.Context())
		r2.URL.Path = "/"
		setCacheHeaders(w, "index.html")
		fileServer.ServeHTTP(w, r2)
	}), nil
}

func exists(fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func setCacheHeaders(w http.ResponseWriter, name string) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js", ".css", ".png", ".svg", ".ico", ".woff2":
		w.Header().Set("Cache-Control", "public, max-age=86400")
	default:
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
