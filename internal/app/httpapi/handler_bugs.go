package httpapi

import (
	"net/http"

	"github.com/R3E-Network/tracker/internal/app/domain/bug"
	"github.com/R3E-Network/tracker/internal/httputil"
)

func (h *handler) createBug(w http.ResponseWriter, r *http.Request) {
	caller, err := actor(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		ProjectID string `json:"projectId"`
		Title     string `json:"title"`
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

	b, err := h.app.Bugs.Create(r.Context(), projectID, payload.Title, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *handler) listProjectBugs(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Bugs.ListForProject(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) bugsNeedingTests(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Bugs.NeedsTesting(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) getBug(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.app.Bugs.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *handler) patchBug(w http.ResponseWriter, r *http.Request) {
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

	var status *bug.Status
	if payload.Status != nil {
		s, err := bug.ParseStatus(*payload.Status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status = &s
	}

	b, err := h.app.Bugs.Update(r.Context(), id, payload.AssigneeLogin, status, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *handler) myBugs(w http.ResponseWriter, r *http.Request) {
	caller, err := actor(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.app.Bugs.ListMine(r.Context(), caller.Login, caller.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
