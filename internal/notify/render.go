package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer 同名模板各有 .txt 与 .html 两份
type Renderer struct {
	text *texttpl.Template
	html *htmltpl.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := map[string]any{
		"inc": func(i int) int { return i + 1 },
	}
	text, err := texttpl.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltpl.New("html").Funcs(htmltpl.FuncMap{
		"inc":   funcs["inc"],
		"nl2br": nl2br,
	}).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{text: text, html: html}, nil
}

func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render "email/new_trip" -> new_trip.txt.tmpl + new_trip.html.tmpl
func (r *Renderer) Render(name string, data map[string]any) (text, html string, err error) {
	base := strings.TrimPrefix(name, "email/")
	var tb, hb bytes.Buffer
	if err = r.text.ExecuteTemplate(&tb, base+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	if err = r.html.ExecuteTemplate(&hb, base+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	return tb.String(), hb.String(), nil
}

func nl2br(v any) htmltpl.HTML {
	s := htmltpl.HTMLEscapeString(fmt.Sprint(v))
	return htmltpl.HTML(strings.ReplaceAll(s, "\n", "<br>\n"))
}
