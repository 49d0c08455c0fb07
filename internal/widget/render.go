package widget

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	WidgetTemplate  = "widget.html"
	InstallTemplate = "install.html"
)

// Renderer draws a widget for one placement.
type Renderer interface {
	Render(w io.Writer, info PlacementInfo) error
}

// InstallPage is the data of the install result page.
type InstallPage struct {
	AppName    string
	HandlerURL string
	Bound      []string
	Failed     []string
	Warnings   []string
	Error      string
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"json": toJSON,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return t, nil
}

// MustTemplates is like Templates but panics on error.
func MustTemplates() *template.Template {
	t, err := Templates()
	if err != nil {
		panic(err)
	}
	return t
}

// TemplateRenderer renders the embedded widget template.
type TemplateRenderer struct {
	tmpl  *template.Template
	title string
}

// NewTemplateRenderer returns a renderer titled title using tmpl, which
// must define WidgetTemplate. A nil tmpl uses the embedded templates.
func NewTemplateRenderer(tmpl *template.Template, title string) *TemplateRenderer {
	if tmpl == nil {
		tmpl = MustTemplates()
	}
	return &TemplateRenderer{tmpl: tmpl, title: title}
}

// Render writes the widget page for info.
func (r *TemplateRenderer) Render(w io.Writer, info PlacementInfo) error {
	data := struct {
		Title string
		Info  PlacementInfo
	}{r.title, info}
	return r.tmpl.ExecuteTemplate(w, WidgetTemplate, data)
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
