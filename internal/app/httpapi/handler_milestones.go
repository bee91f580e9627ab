package httpapi

import (
	"net/http"
	"strings"

	"github.com/R3E-Network/tracker/internal/app/domain/milestone"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/httputil"
)

func (h *handler) listMilestones(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Milestones.ListForProject(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) createMilestone(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caller, err := actor(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	start, err := optionalDate("startDate", payload.StartDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := optionalDate("endDate", payload.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := h.app.Milestones.Create(r.Context(), projectID, payload.Name, start, end, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

// optionalDate leaves blank dates zero so the service reports them missing.
func optionalDate(field, raw string) (milestone.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return milestone.Date{}, nil
	}
	d, err := milestone.ParseDate(raw)
	if err != nil {
		return milestone.Date{}, errors.Validation("%s: %s", field, err.Error())
	}
	return d, nil
}

func (h *handler) getMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.app.Milestones.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *handler) patchMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caller, err := actor(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		Action string `json:"action"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	action, err := milestone.ParseAction(payload.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.app.Milestones.Apply(r.Context(), id, action, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *handler) listMilestoneTickets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Tickets.ListForMilestone(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
