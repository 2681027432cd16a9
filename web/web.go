// Package web embeds the HTML templates rendered by the handlers.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page and partial. Pages are looked up by file
// name, e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}
