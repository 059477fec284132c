package http

import (
	"context"
	"net/http"
	"time"

	"budget/internal/core"
	"budget/internal/savings"
	"budget/internal/services"
)

// recentLimit is how many of the month's transactions the overview lists.
const recentLimit = 10

type overviewView struct {
	page
	services.Dashboard
	Selected    string
	SavingsRate float64
	MaxCategory core.Money
	Recent      []core.Transaction
	More        int
}

// Share exposes the snapshot split to the template.
func (v overviewView) Share(b savings.Balance) float64 {
	return v.Savings.Share(b)
}

// handleOverview renders the monthly dashboard.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		if isHTMX(r) {
			NotFoundError("Cette page n'existe pas.").Write(w)
			return
		}
		s.render(w, r, http.StatusNotFound, "error", page{Title: "Introuvable", Error: "Cette page n'existe pas."})
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := s.svc.Dashboard(ctx, ParseMonthParam(r.URL.Query()))
	if err != nil {
		s.recordError(err)
		s.renderError(w, r, err)
		return
	}

	view := overviewView{
		page:      page{Title: "Vue d'ensemble", Active: "overview"},
		Dashboard: d,
	}
	if !d.Empty {
		view.Selected = d.Month.String()
		view.SavingsRate = d.Overview.SavingsRate()
		view.MaxCategory = maxCategory(d.Overview.ByCategory)
		view.Recent = d.Overview.Transactions
		if len(view.Recent) > recentLimit {
			view.More = len(view.Recent) - recentLimit
			view.Recent = view.Recent[:recentLimit]
		}
	}
	s.render(w, r, http.StatusOK, "overview", view)
}
