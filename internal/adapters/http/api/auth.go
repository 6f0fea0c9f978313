package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/internal/domain/types"
)

// AccountDependencies defines the interface for account operations.
type AccountDependencies interface {
	Register(ctx context.Context, c types.Credentials) (model.User, error)
	Login(ctx context.Context, c types.Credentials) (string, model.User, error)
	Logout(ctx context.Context, token string)
	Session(ctx context.Context, token string) (*session.AppState, error)
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	deps   AccountDependencies
	secure bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AccountDependencies, secure bool) *AuthHandler {
	return &AuthHandler{deps: deps, secure: secure}
}

type accountResponse struct {
	Name    string   `json:"name"`
	History []string `json:"history"`
}

type sessionResponse struct {
	Name   string `json:"name"`
	Lesson *int   `json:"lesson"`
}

func decodeCredentials(r *http.Request, op string) (types.Credentials, error) {
	var c types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, WrapKind(op, ErrBadRequest, err)
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || c.Password == "" {
		return c, NewKind(op, ErrBadRequest)
	}
	return c, nil
}

// HandleRegister handles POST /api/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	c, err := decodeCredentials(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	u, err := h.deps.Register(r.Context(), c)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{Name: u.Name, History: u.History})
}

// HandleLogin handles POST /api/login and sets the session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	c, err := decodeCredentials(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	token, u, err := h.deps.Login(r.Context(), c)
	if err != nil {
		writeFailure(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, accountResponse{Name: u.Name, History: u.History})
}

// HandleLogout handles POST /api/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.deps.Logout(r.Context(), sessionToken(r))
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession handles GET /api/session, reporting who is logged in and
// which lesson is selected.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Session(r.Context(), sessionToken(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	var resp sessionResponse
	_ = st.With(func(st *session.AppState) error {
		resp.Name = st.User
		if st.HasLesson() {
			idx := st.LessonIndex
			resp.Lesson = &idx
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}
