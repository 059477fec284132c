package http

import (
	"context"
	"net/http"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

type analysisView struct {
	page
	From        string
	To          string
	Selected    filterSelection
	Categories  []string
	Accounts    []string
	Types       []string
	Result      core.AggregateResult
	MaxCategory core.Money
	MaxDaily    core.Money
	NoData      bool
	FieldErrors map[string]string
}

// filterSelection echoes the checked filter values back into the form.
type filterSelection struct {
	Categories []string
	Accounts   []string
	Types      []string
	Magnitude  bool
}

func newAnalysisView() analysisView {
	return analysisView{
		page:       page{Title: "Analyse", Active: "analysis"},
		Categories: core.Categories(),
		Accounts:   core.Accounts(),
		Types:      core.Types(),
	}
}

// handleAnalysis renders totals, the category breakdown and the daily net
// series for the requested window.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	view := newAnalysisView()
	view.From, view.To = q.Get("from"), q.Get("to")

	f, err := ParseFilter(q)
	if err != nil {
		s.recordError(err)
		if !core.IsValidation(err) {
			s.renderError(w, r, err)
			return
		}
		view.Error = userMessage(err)
		view.FieldErrors = fieldMessages(asValidation(err))
		s.render(w, r, http.StatusUnprocessableEntity, "analysis", view)
		return
	}
	view.Selected = filterSelection{
		Categories: f.Categories,
		Accounts:   f.Accounts,
		Types:      f.Types,
		Magnitude:  f.SortByMagnitude,
	}

	minDate, maxDate, ok, err := s.svc.Bounds(ctx)
	if err != nil {
		s.recordError(err)
		s.renderError(w, r, err)
		return
	}
	if !ok {
		view.NoData = true
		s.render(w, r, http.StatusOK, "analysis", view)
		return
	}
	if f.From.IsZero() {
		view.From = minDate.String()
	}
	if f.To.IsZero() {
		view.To = maxDate.String()
	}

	res, err := s.svc.QueryAggregate(ctx, f)
	if err != nil {
		s.recordError(err)
		s.renderError(w, r, err)
		return
	}
	view.Result = res
	view.MaxCategory = maxCategory(res.ByCategory)
	view.MaxDaily = maxDaily(res.DailyNet)
	s.render(w, r, http.StatusOK, "analysis", view)
}

// handleAggregateAPI returns the aggregate as JSON for the charts.
func (s *Server) handleAggregateAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	f, err := ParseFilter(r.URL.Query())
	if err == nil {
		var res core.AggregateResult
		if res, err = s.svc.QueryAggregate(r.Context(), f); err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}
	}
	s.recordError(err)
	status := statusFor(err)
	s.logger.Log(r.Context(), log.StatusLevel(status), "Aggregate query failed",
		log.FieldError, err.Error(),
		log.FieldStatusCode, status,
		log.FieldErrorType, errorType(err))
	body := map[string]any{"error": userMessage(err)}
	if core.IsValidation(err) {
		body["fields"] = fieldMessages(asValidation(err))
	}
	writeJSON(w, status, body)
}

func maxDaily(series []core.DailyNet) core.Money {
	var m core.Money
	for _, d := range series {
		if d.Net.Abs().Cents > m.Cents {
			m = d.Net.Abs()
		}
	}
	return m
}

