// Package handler contains the HTTP handlers for the web application.
//
// Handlers are the glue between HTTP and the services: they parse the
// request, call one service method and write HTML, JSON or a file back.
// Business rules live in internal/service.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/doc-insight/internal/middleware"
)

const siteTitle = "Doc Insight"

// Pages holds the parsed HTML pages. Templates are parsed once at startup.
//
// Each page is parsed together with base.html: base defines the layout with a
// {{template "content" .}} placeholder and the page fills it with
// {{define "content"}}. Pages get their own template set because they all
// define "content".
type Pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// pageNames are the files under the template directory, without ".html".
var pageNames = []string{"index", "login", "signup"}

// NewPages parses base.html plus every page in templateDir.
func NewPages(templateDir string, logger *slog.Logger) (*Pages, error) {
	p := &Pages{
		templates: make(map[string]*template.Template, len(pageNames)),
		logger:    logger,
	}
	for _, name := range pageNames {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Render executes page into w. The flash message for this request and the
// page title are added to data.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tmpl, ok := p.templates[page]
	if !ok {
		p.logger.Error("unknown page", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = siteTitle
	}
	data["Flash"] = middleware.FlashFromContext(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		// The status line is already sent; all we can do is log.
		p.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}
