package main

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"physician-scheduler/internal/middleware"
)

var templateFuncs = template.FuncMap{
	"has": func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	},
}

// resolveTemplatePath locates a template whether the binary runs from the
// module root or from cmd/api during tests.
func resolveTemplatePath(name string) string {
	p := filepath.Join("ui", "templates", name)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join("..", "..", "ui", "templates", name)
}

func render(w http.ResponseWriter, r *http.Request, page string, data interface{}) {
	tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		resolveTemplatePath("layout.html"),
		resolveTemplatePath(page),
	)
	if err != nil {
		http.Error(w, "Template Parse Error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	wrapper := struct {
		Data      interface{}
		CSRFToken string
	}{
		Data:      data,
		CSRFToken: middleware.Token(r),
	}

	if err := tmpl.ExecuteTemplate(w, "layout", wrapper); err != nil {
		http.Error(w, "Template Execute Error: "+err.Error(), http.StatusInternalServerError)
	}
}
