package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/hugh/clubhub/internal/api/validation"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

const baseLayout = "templates/layouts/base.html"

// Templates holds one template set per page. Every set is the base layout
// plus one page, so pages can define the same blocks without clobbering
// each other.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"truncate": validation.TruncateString,
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// LoadTemplates parses every page under templates/pages against the base layout.
func LoadTemplates() (*Templates, error) {
	entries, err := fs.ReadDir(TemplatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(TemplatesFS, baseLayout, path.Join("templates/pages", name))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}

	return t, nil
}

// Render executes the named page into w. Output is buffered so a failing
// template never leaves a half-written page.
func (t *Templates) Render(w io.Writer, name string, data any) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page template exists.
func (t *Templates) Has(name string) bool {
	_, ok := t.pages[name]
	return ok
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
