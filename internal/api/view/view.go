// Package view holds the HTML pages served by the API
package view

import (
	"embed"
	"html/template"
	"path"
	"strings"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"ext": func(name string) string {
		return strings.TrimPrefix(path.Ext(name), ".")
	},
}

// Templates parses every embedded page. Templates are addressed by file name,
// e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
