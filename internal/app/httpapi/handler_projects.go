package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/httputil"
	"github.com/R3E-Network/tracker/pkg/logger"
)

func (h *handler) createProject(w http.ResponseWriter, r *http.Request) {
	caller, err := actor(r, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.app.Projects.Create(r.Context(), payload.Name, caller.Login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// listProjects returns the caller's projects, or every project when no
// caller is identified.
func (h *handler) listProjects(w http.ResponseWriter, r *http.Request) {
	login := logger.GetActor(r.Context())
	if login == "" {
		login = strings.TrimSpace(r.URL.Query().Get("user"))
	}

	var (
		projects []project.Project
		err      error
	)
	if login == "" {
		projects, err = h.app.Projects.List(r.Context())
	} else {
		projects, err = h.app.Projects.ListForUser(r.Context(), login)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projects)
}

func (h *handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.app.Projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) addMember(w http.ResponseWriter, r *http.Request) {
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
		UserLogin string `json:"userLogin"`
		Role      string `json:"role"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := project.ParseRole(payload.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.app.Projects.AddMember(r.Context(), id, payload.UserLogin, role, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// memberRoleResponse carries a null role for non-members and unknown projects.
type memberRoleResponse struct {
	ProjectID string        `json:"projectId"`
	Login     string        `json:"login"`
	Role      *project.Role `json:"role"`
}

func (h *handler) memberRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	login := mux.Vars(r)["login"]
	role, ok, err := h.app.Projects.RoleOf(r.Context(), id, login)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := memberRoleResponse{ProjectID: id, Login: login}
	if ok {
		resp.Role = &role
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
