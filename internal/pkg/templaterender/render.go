package templaterender

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Renderer renders html mail templates stored as <dir>/<route>.html.
// Every page is executed inside <dir>/layout.html, which must define "layout".
type Renderer struct {
	fsys fs.FS
	dir  string

	mu    sync.RWMutex
	cache map[string]*htmltemplate.Template
}

func NewRenderer(fsys fs.FS, dir string) *Renderer {
	return &Renderer{fsys: fsys, dir: dir, cache: make(map[string]*htmltemplate.Template)}
}

// ErrUnknownRoute is returned when no template file exists for a route.
var ErrUnknownRoute = fmt.Errorf("template route not found")

func (r *Renderer) Render(_ context.Context, route string, data map[string]any) (string, error) {
	t, err := r.lookup(route)
	if err != nil {
		return "", err
	}
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", route, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r *Renderer) lookup(route string) (*htmltemplate.Template, error) {
	route = strings.Trim(strings.TrimSpace(route), "/")
	route = strings.TrimSuffix(route, ".html")
	file := path.Join(r.dir, route+".html")
	if route == "" || route == "layout" || !fs.ValidPath(file) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, route)
	}

	r.mu.RLock()
	t, ok := r.cache[route]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	if _, err := fs.Stat(r.fsys, file); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, route)
	}
	t, err := htmltemplate.New(route).Option("missingkey=zero").ParseFS(r.fsys, path.Join(r.dir, "layout.html"), file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", route, err)
	}

	r.mu.Lock()
	r.cache[route] = t
	r.mu.Unlock()
	return t, nil
}
