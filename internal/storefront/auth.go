package storefront

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string        `json:"session_id"`
	User      identity.User `json:"user"`
}

// HandleLogin signs the caller in. An anonymous session, or one already held
// by the same user, keeps its cart. A session owned by someone else is left
// alone and the caller gets a fresh one.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, ident, err := h.backend.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.logger.Warn("login failed", "error", err, "identifier", req.Identifier)
		status := backendStatus(err)
		if status == http.StatusBadRequest {
			status = http.StatusUnauthorized
		}
		h.writeError(w, status, backendMessage(err, "authentication failed"))
		return
	}

	sess, ok := h.currentSession(w, r, false)
	if !ok || (!sess.User().ID.IsZero() && sess.User().ID != user.ID) {
		sess = h.sessions.Create()
		w.Header().Set(SessionHeader, sess.ID())
	}
	sess.SignIn(user, ident)

	h.logger.Info("user signed in", "user_id", user.ID.String(), "session_id", sess.ID())
	h.writeJSON(w, http.StatusOK, loginResponse{SessionID: sess.ID(), User: user})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.backend.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("registration failed", "error", err, "username", req.Username)
		h.writeError(w, backendStatus(err), backendMessage(err, "registration failed"))
		return
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	h.writeJSON(w, http.StatusCreated, map[string]identity.User{"user": user})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id := r.Header.Get(SessionHeader); id != "" {
		h.sessions.Delete(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
