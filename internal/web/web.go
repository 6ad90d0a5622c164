// Package web embeds the HTML templates and static assets for the server.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/*
var static embed.FS

// PageNames lists every page that renders inside the base layout.
var PageNames = []string{"index", "add", "select", "edit", "error"}

func Static() (fs.FS, error) {
	return fs.Sub(static, "static")
}

// Pages parses each page together with the shared layout. Execute the
// result with the "base" template name.
func Pages() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(PageNames))
	for _, name := range PageNames {
		tmpl, err := template.ParseFS(templates, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		out[name] = tmpl
	}
	return out, nil
}
