package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/tracker/internal/httputil"
)

func (h *handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.app.Users.Register(r.Context(), payload.Login, payload.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Users.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), mux.Vars(r)["login"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}
