// Transaction handlers: CRUD plus the single-slot undo endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/service/ledger"
)

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	var (
		txs []budget.Transaction
		err error
	)
	if r.URL.Query().Get("period") == "current" {
		txs, err = s.insights.TransactionsInPeriod(r.Context(), userID)
	} else {
		txs, err = s.repo.Transactions(r.Context(), userID)
	}
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postTransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	t := budget.Transaction{
		UserID:      req.UserID,
		Date:        date,
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		GoalID:      req.GoalID,
		Source:      req.Source,
		Description: req.Description,
		Amount:      s.amount(req.AmountMinor),
		Metadata:    req.Metadata,
	}
	saved, err := s.svc.AddTransaction(r.Context(), t)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	transactionsRecorded.WithLabelValues(string(saved.Kind)).Inc()
	toJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) patchTransaction(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchTransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return
	}
	patch := ledger.TransactionPatch{
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		GoalID:      req.GoalID,
		Source:      req.Source,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}
	if req.AmountMinor != nil {
		a := s.amount(*req.AmountMinor)
		patch.Amount = &a
	}
	saved, err := s.svc.UpdateTransaction(r.Context(), req.UserID, id, patch)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(saved))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), userID, id); err != nil {
		s.writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// undoDelete restores the most recently deleted item. An empty undo
// buffer is not an error; the response just reports restored=false.
func (s *Server) undoDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	restored, err := s.svc.UndoLastDelete(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		Restored bool `json:"restored"`
	}{Restored: restored})
}
