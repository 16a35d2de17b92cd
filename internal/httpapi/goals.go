// Goal handlers. The list endpoint runs the enrich-then-apply cycle: it
// reads goals with derived balances, then persists any auto-archive
// transitions that read detected, so completed goals converge to
// archived without a write happening mid-read.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/service/ledger"
)

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	views, transitions, err := s.insights.EnrichGoals(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	if len(transitions) > 0 {
		if err := s.svc.ApplyGoalTransitions(r.Context(), userID, transitions); err != nil {
			s.writeDomainErr(w, err)
			return
		}
	}
	out := make([]goalResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toGoalResponse(v.Goal, v.CurrentMinor))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postGoal(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postGoalRequest
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
	g := budget.Goal{
		UserID:   req.UserID,
		Name:     req.Name,
		Target:   s.amount(req.TargetMinor),
		Priority: req.Priority,
		Metadata: req.Metadata,
	}
	saved, err := s.svc.AddGoal(r.Context(), g)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toGoalResponse(saved, 0))
}

func (s *Server) patchGoal(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchGoalRequest
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
	patch := ledger.GoalPatch{
		Name:     req.Name,
		Priority: req.Priority,
		Metadata: req.Metadata,
	}
	if req.TargetMinor != nil {
		a := s.amount(*req.TargetMinor)
		patch.Target = &a
	}
	saved, err := s.svc.UpdateGoal(r.Context(), req.UserID, id, patch)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	current, err := s.svc.GoalCurrentMinor(r.Context(), req.UserID, saved.ID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toGoalResponse(saved, current))
}

func (s *Server) archiveGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	g, err := s.svc.ArchiveGoal(r.Context(), userID, id)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	current, err := s.svc.GoalCurrentMinor(r.Context(), userID, g.ID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toGoalResponse(g, current))
}

// deleteGoal cascades over the goal's transactions; a subsequent undo
// restores the goal together with its history.
func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteGoal(r.Context(), userID, id); err != nil {
		s.writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
