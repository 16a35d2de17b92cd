// Category handlers: list, create, patch, archive, reorder.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/service/ledger"
)

// pathID parses the numeric {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	cats, err := s.repo.Categories(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		if c.Archived && !includeArchived {
			continue
		}
		out = append(out, toCategoryResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postCategory(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postCategoryRequest
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
	c := budget.Category{
		UserID:         req.UserID,
		Name:           req.Name,
		Icon:           req.Icon,
		Type:           req.Type,
		DefaultBudget:  s.amount(req.DefaultBudgetMinor),
		MonthlyBudgets: s.monthlyBudgets(req.MonthlyBudgetsMinor),
	}
	saved, err := s.svc.AddCategory(r.Context(), c)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCategoryResponse(saved))
}

func (s *Server) patchCategory(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchCategoryRequest
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
	patch := ledger.CategoryPatch{
		Name:           req.Name,
		Icon:           req.Icon,
		Type:           req.Type,
		MonthlyBudgets: s.monthlyBudgets(req.MonthlyBudgetsMinor),
	}
	if req.DefaultBudgetMinor != nil {
		a := s.amount(*req.DefaultBudgetMinor)
		patch.DefaultBudget = &a
	}
	saved, err := s.svc.UpdateCategory(r.Context(), req.UserID, id, patch)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCategoryResponse(saved))
}

func (s *Server) archiveCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	had, err := s.svc.ArchiveCategory(r.Context(), userID, id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		Archived        bool `json:"archived"`
		HadTransactions bool `json:"had_transactions"`
	}{Archived: true, HadTransactions: had})
}

type reorderCategoryRequest struct {
	UserID    uuid.UUID        `json:"user_id"`
	Direction ledger.Direction `json:"direction"`
}

func (s *Server) reorderCategory(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reorderCategoryRequest
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
	cats, err := s.svc.ReorderCategory(r.Context(), req.UserID, id, req.Direction)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}
