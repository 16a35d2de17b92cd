// Billing period handlers: read, rebound, close-and-rollover, history.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func (s *Server) getPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Period(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, s.toPeriodResponse(p))
}

func (s *Server) putPeriod(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req putPeriodRequest
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
	start, err := parseDate(req.StartDate)
	if err != nil {
		badRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	// Absent end dates flow through as zero so the service reports the
	// missing field in its collected validation errors.
	var end time.Time
	if req.EndDate != "" {
		end, err = parseDate(req.EndDate)
		if err != nil {
			badRequest(w, "end_date must be YYYY-MM-DD")
			return
		}
	}
	p, err := s.svc.SetBillingPeriod(r.Context(), req.UserID, start, end)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, s.toPeriodResponse(p))
}

func (s *Server) closePeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	snap, next, err := s.svc.ClosePeriodAndStartNew(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	periodsClosed.Inc()
	toJSON(w, http.StatusCreated, closePeriodResponse{
		ClosedPeriod: toSnapshotResponse(snap),
		NewPeriod:    s.toPeriodResponse(next),
	})
}

func (s *Server) listClosedPeriods(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	closed, err := s.svc.ClosedPeriods(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	out := make([]snapshotResponse, 0, len(closed))
	for _, snap := range closed {
		out = append(out, toSnapshotResponse(snap))
	}
	toJSON(w, http.StatusOK, out)
}
