// Package web holds the embedded page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"
)

//go:embed templates static
var files embed.FS

var funcs = template.FuncMap{
	"fdate": func(t time.Time) string { return t.Format("January 2, 2006") },
	"safe":  func(s string) template.HTML { return template.HTML(s) },
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"home", "about", "reading", "blog", "post", "notfound"} {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(files,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

// RenderPage writes the named page wrapped in the site layout.
func RenderPage(w io.Writer, name string, data any) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("web: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// Static serves the embedded static assets.
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
