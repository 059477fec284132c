package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"

	"budget/internal/core"
	"budget/internal/log"
	appweb "budget/web"
)

var pageNames = []string{"overview", "transactions", "analysis", "advice", "error"}

// page carries what the layout needs on every screen.
type page struct {
	Title  string
	Active string
	Flash  string
	Error  string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euros":    func(m core.Money) string { return m.Display() },
		"pct":      func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) + " %" },
		"barWidth": barWidth,
		"contains": func(set []string, v string) bool { return slices.Contains(set, v) },
		"amountClass": func(m core.Money) string {
			switch {
			case m.IsNegative():
				return "neg"
			case m.IsPositive():
				return "pos"
			}
			return ""
		},
	}
}

// parseTemplates pairs the layout with each page so every page can define its
// own "content" block.
func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// barWidth scales amount against max into a rounded percentage, keeping tiny
// non-zero values visible.
func barWidth(amount, max core.Money) int {
	a, m := amount.Abs().Cents, max.Abs().Cents
	if m == 0 || a == 0 {
		return 0
	}
	width := int((a*100 + m/2) / m)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

func maxCategory(items []core.CategoryAmount) core.Money {
	var m core.Money
	for _, it := range items {
		if it.Amount.Abs().Cents > m.Cents {
			m = it.Amount.Abs()
		}
	}
	return m
}

// render executes a page into a buffer so template failures still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "unknown template "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.NewFields().
				WithError(err).
				WithOperation(log.OpRender).
				WithErrorType(log.ErrorTypeInternal).
				ToSlice()...)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows err on the error page with the matching status.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log.FromContext(r.Context()).Log(r.Context(), log.StatusLevel(status), "Request failed",
		log.NewFields().
			WithError(err).
			WithErrorType(errorType(err)).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
			ToSlice()...)

	if isHTMX(r) {
		errorBuilder(err).Write(w)
		return
	}
	s.render(w, r, status, "error", page{Title: "Erreur", Error: userMessage(err)})
}
