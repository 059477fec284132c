package http

import (
	"net/http"

	"budget/internal/advice"
)

type adviceView struct {
	page
	*advice.Page
	Flowchart string
}

// handleAdvice serves the static strategy page.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	content := s.advice
	if content == nil {
		content = &advice.Page{}
	}
	s.render(w, r, http.StatusOK, "advice", adviceView{
		page:      page{Title: "Conseils", Active: "advice"},
		Page:      content,
		Flowchart: "/static/flowchart.svg",
	})
}
