package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
)

type transactionsView struct {
	page
	Form         core.Candidate
	FieldErrors  map[string]string
	Categories   []string
	Accounts     []string
	Types        []string
	Transactions []core.Transaction
	Checking     core.Money
}

func newTransactionsView() transactionsView {
	return transactionsView{
		page: page{Title: "Transactions", Active: "transactions"},
		Form: core.Candidate{
			Date:    core.DateOf(time.Now()).String(),
			Type:    core.TypeExpense,
			Account: core.CheckingAccount,
		},
		Categories: core.Categories(),
		Accounts:   core.Accounts(),
		Types:      core.Types(),
	}
}

// handleTransactions serves the entry page and accepts new entries.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		view := newTransactionsView()
		view.Flash = flashFromQuery(r.URL.Query())
		s.renderTransactions(w, r, http.StatusOK, view)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderTransactions(w http.ResponseWriter, r *http.Request, status int, view transactionsView) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	txs, err := s.svc.LoadLedger(ctx)
	if err != nil {
		s.recordError(err)
		s.renderError(w, r, err)
		return
	}
	view.Transactions = txs
	for _, tx := range txs {
		if tx.Account == core.CheckingAccount {
			view.Checking = view.Checking.Add(tx.Amount)
		}
	}
	s.render(w, r, status, "transactions", view)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse body error", log.FieldError, err.Error(), log.FieldPath, r.URL.Path)
		BadRequestError("Format de requête invalide").Write(w)
		return
	}
	candidate := p.Candidate()

	res, err := s.svc.SubmitTransaction(r.Context(), candidate)
	if err != nil {
		s.recordError(err)
		if !core.IsValidation(err) || isHTMX(r) {
			s.renderError(w, r, err)
			return
		}
		view := newTransactionsView()
		view.Form = candidate
		view.FieldErrors = fieldMessages(asValidation(err))
		view.Error = "La transaction n'a pas été enregistrée."
		s.renderTransactions(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	s.appMetrics.appended.Add(1)
	tx := res.Transaction

	if isHTMX(r) {
		msg := fmt.Sprintf("Transaction n°%d enregistrée : %s %s.", tx.ID, tx.Description, tx.Amount.Display())
		if res.Normalized {
			msg += " " + normalizedNotice
		}
		SuccessResponse(msg).
			TriggerLedgerChanged(amqp.ChangeAppend, []int64{tx.ID}).
			TriggerFormReset().
			Write(w)
		return
	}

	q := url.Values{"added": {strconv.FormatInt(tx.ID, 10)}}
	if res.Normalized {
		q.Set("normalized", "1")
	}
	http.Redirect(w, r, "/transactions?"+q.Encode(), http.StatusSeeOther)
}

// handleDeleteTransactions removes the checked entries by id.
func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ids, err := ParseIDs(r.PostForm["id"])
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	n, err := s.svc.DeleteTransactions(r.Context(), ids)
	if err != nil {
		s.recordError(err)
		s.renderError(w, r, err)
		return
	}
	s.appMetrics.deleted.Add(int64(n))
	s.logger.InfoContext(r.Context(), "Transactions deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldCount, n)

	if isHTMX(r) {
		b := SuccessResponse(deletedNotice(n)).TriggerSuccessNotification(deletedNotice(n))
		if n > 0 {
			b.TriggerLedgerChanged(amqp.ChangeDelete, ids)
		}
		b.Write(w)
		return
	}
	http.Redirect(w, r, "/transactions?deleted="+strconv.Itoa(n), http.StatusSeeOther)
}

const normalizedNotice = "Le signe du montant a été ajusté pour correspondre au type."

func deletedNotice(n int) string {
	switch n {
	case 0:
		return "Aucune transaction supprimée."
	case 1:
		return "1 transaction supprimée."
	default:
		return strconv.Itoa(n) + " transactions supprimées."
	}
}

// flashFromQuery rebuilds the confirmation after a redirect.
func flashFromQuery(q url.Values) string {
	if id := q.Get("added"); id != "" {
		msg := "Transaction n°" + id + " enregistrée."
		if q.Get("normalized") == "1" {
			msg += " " + normalizedNotice
		}
		return msg
	}
	if v := q.Get("deleted"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return deletedNotice(n)
		}
	}
	return ""
}

func asValidation(err error) *core.ValidationError {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &core.ValidationError{}
}
