package api

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"

	"todo-web/domain"
)

//go:embed views/*.html views/static
var viewsFS embed.FS

var pageTemplates = template.Must(template.ParseFS(viewsFS, "views/*.html"))

// listPage is the data handed to the "index" template.
type listPage struct {
	Title string
	Items []domain.Item
}

// Templates renders the embedded page templates for echo.
type Templates struct {
	templates *template.Template
}

// NewTemplates returns a renderer over the embedded views.
func NewTemplates() *Templates {
	return &Templates{templates: pageTemplates}
}

func (t *Templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

func staticFS() fs.FS {
	sub, err := fs.Sub(viewsFS, "views/static")
	if err != nil {
		panic(err)
	}
	return sub
}
