package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/metrics"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

// Sessions starts and ends logged-in sessions on the response.
type Sessions interface {
	Start(ctx context.Context, w http.ResponseWriter, userID int64) error
	End(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Handler exposes the account pages: register, login, logout and the admin
// user list.
type Handler struct {
	svc      *UserService
	sessions Sessions
	view     *web.Renderer
	logger   *zap.SugaredLogger
}

func NewHandler(svc *UserService, sessions Sessions, view *web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, view: view, logger: logger}
}

// RegisterForm is the sticky part of the registration form.
type RegisterForm struct {
	Username string
	Email    string
	Phone    string
}

// LoginForm is the sticky part of the login form.
type LoginForm struct {
	Username string
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "register", web.Page{Title: "Register", Data: RegisterForm{}})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid register form", "err", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := RegisterInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Phone:    r.PostForm.Get("phone"),
		Password: r.PostForm.Get("password"),
	}
	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		form := RegisterForm{Username: in.Username, Email: in.Email, Phone: in.Phone}
		switch {
		case errors.Is(err, ErrMissingFields):
			h.registerFailed(w, r, http.StatusBadRequest, form, "Username, email and password are required.")
		case errors.Is(err, ErrPasswordTooLong):
			h.registerFailed(w, r, http.StatusBadRequest, form, fmt.Sprintf("Password must be at most %d bytes.", MaxPasswordBytes))
		case errors.Is(err, ErrDuplicateUsername):
			h.registerFailed(w, r, http.StatusConflict, form, "Username already exists. Please choose a different one.")
		case errors.Is(err, ErrDuplicateEmail):
			h.registerFailed(w, r, http.StatusConflict, form, "Email already registered. Please use a different one.")
		default:
			h.view.ServerError(w, r, err)
		}
		return
	}
	metrics.Registrations.Inc()
	h.logger.Infow("user registered", "user_id", u.ID, "username", u.Username)
	web.Redirect(w, r, "/login", web.FlashSuccess, "Registration successful. Please log in.")
}

func (h *Handler) registerFailed(w http.ResponseWriter, r *http.Request, status int, form RegisterForm, msg string) {
	h.logger.Debugw("registration rejected", "username", form.Username, "reason", msg)
	h.view.Render(w, r, status, "register", web.Page{
		Title:   "Register",
		Flashes: []web.Flash{{Category: web.FlashError, Message: msg}},
		Data:    form,
	})
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := web.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.view.Render(w, r, http.StatusOK, "login", web.Page{Title: "Log in", Data: LoginForm{}})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid login form", "err", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	u, err := h.svc.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			h.logger.Debugw("login failed", "username", username)
			h.view.Render(w, r, http.StatusUnauthorized, "login", web.Page{
				Title:   "Log in",
				Flashes: []web.Flash{{Category: web.FlashError, Message: "Invalid username or password"}},
				Data:    LoginForm{Username: username},
			})
			return
		}
		h.view.ServerError(w, r, err)
		return
	}
	if err := h.sessions.Start(r.Context(), w, u.ID); err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.logger.Infow("user logged in", "user_id", u.ID)
	web.Redirect(w, r, "/", web.FlashSuccess, "Logged in successfully.")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		// the cookie is already expired; the stored session will age out
		h.logger.Warnw("session revoke failed", "err", err)
	}
	web.Redirect(w, r, "/login", web.FlashInfo, "You have been logged out.")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "users", web.Page{Title: "Users", Data: users})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.UserFrom(r.Context())
	id, ok := web.PathID(r)
	if !ok {
		web.Redirect(w, r, "/users", web.FlashError, "User not found.")
		return
	}
	err := h.svc.Delete(r.Context(), actor.ID, id)
	switch {
	case err == nil:
		h.logger.Infow("user deleted", "user_id", id, "by", actor.ID)
		web.Redirect(w, r, "/users", web.FlashSuccess, "User deleted successfully.")
	case errors.Is(err, ErrSelfDelete):
		web.Redirect(w, r, "/users", web.FlashError, "You cannot delete your own account.")
	case errors.Is(err, ErrUserNotFound):
		web.Redirect(w, r, "/users", web.FlashError, "User not found.")
	default:
		h.view.ServerError(w, r, err)
	}
}
