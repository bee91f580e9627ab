package httpapi

import (
	"net/http"

	"github.com/R3E-Network/tracker/internal/app/domain/ticket"
	"github.com/R3E-Network/tracker/internal/httputil"
)

func (h *handler) createTicket(w http.ResponseWriter, r *http.Request) {
	caller, err := actor(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		ProjectID   string `json:"projectId"`
		MilestoneID string `json:"milestoneId"`
		Title       string `json:"title"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	projectID, err := parseID("projectId", payload.ProjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	milestoneID, err := parseID("milestoneId", payload.MilestoneID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.app.Tickets.Create(r.Context(), projectID, milestoneID, payload.Title, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *handler) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.app.Tickets.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

// patchTicket applies an optional assignment and then an optional status
// change. Either both succeed or nothing is written.
func (h *handler) patchTicket(w http.ResponseWriter, r *http.Request) {
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
		AssigneeLogin *string `json:"assigneeLogin"`
		Status        *string `json:"status"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	var status *ticket.Status
	if payload.Status != nil {
		s, err := ticket.ParseStatus(*payload.Status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status = &s
	}

	t, err := h.app.Tickets.Update(r.Context(), id, payload.AssigneeLogin, status, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) myTickets(w http.ResponseWriter, r *http.Request) {
	caller, err := actor(r, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Tickets.ListForAssignee(r.Context(), caller.Login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
