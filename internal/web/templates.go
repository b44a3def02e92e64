package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var templatesFS embed.FS

// TemplateEngine handles HTML template rendering
type TemplateEngine struct {
	fsys      fs.FS
	templates *template.Template
}

// NewTemplateEngine creates a template engine over fsys. A nil fsys uses the
// embedded templates.
func NewTemplateEngine(fsys fs.FS) *TemplateEngine {
	if fsys == nil {
		sub, _ := fs.Sub(templatesFS, "templates")
		fsys = sub
	}
	return &TemplateEngine{fsys: fsys}
}

// Load parses all base templates; pages are parsed on render.
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Funcs(template.FuncMap{
		"lower": strings.ToLower,
	})

	err := fs.WalkDir(te.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip pages directory - these are loaded on-demand
		if d.IsDir() && d.Name() == "pages" {
			return fs.SkipDir
		}

		if !d.IsDir() && path.Ext(p) == ".html" {
			_, err = tmpl.ParseFS(te.fsys, p)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	te.templates = tmpl
	return nil
}

// Render renders a page inside the layout.
func (te *TemplateEngine) Render(w io.Writer, name string, data interface{}) error {
	if te.templates == nil {
		if err := te.Load(); err != nil {
			return err
		}
	}

	// Clone base templates and parse page-specific template
	tmpl, err := te.templates.Clone()
	if err != nil {
		return err
	}

	tmpl, err = tmpl.ParseFS(te.fsys, path.Join("pages", name+".html"))
	if err != nil {
		return err
	}

	// Execute layout with content
	return tmpl.ExecuteTemplate(w, "layout", data)
}
