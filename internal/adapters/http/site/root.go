// Package site serves the embedded browser UI.
package site

import (
	"context"
	"net/http"
)

// Register attaches the browser UI to mux at the root. API routes registered
// on the same mux take precedence through their longer patterns.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", NewRootHandler())
}

// RootHandler serves the single-page practice UI and its assets.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP serves static assets, falling back to index.html for unknown
// paths so reloads keep working.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && !exists(r.URL.Path) {
		r.URL.Path = "/"
	}
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}

func exists(path string) bool {
	f, err := FS().Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
