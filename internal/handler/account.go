package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/auth"
	"github.com/sakif/doc-insight/internal/middleware"
	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/service"
)

// Accounts is the part of service.AccountService the handlers use.
type Accounts interface {
	Signup(ctx context.Context, in service.SignupInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	History(ctx context.Context, userID string) ([]model.ChatHistory, error)
}

// AccountHandler serves the index page, signup, login, logout and the
// history API.
//
// HANDLER RESPONSIBILITIES:
//   - HandleIndex        → main page, with history when logged in
//   - HandleSignupPage   → signup form
//   - HandleSignup       → create the account, flash + redirect
//   - HandleLoginPage    → login form
//   - HandleLogin        → verify credentials, set the session cookie
//   - HandleLogout       → clear the session cookie
//   - HandleHistory      → the caller's history as JSON
type AccountHandler struct {
	accounts   Accounts
	pages      *Pages
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAccountHandler creates an AccountHandler. sessionTTL is the cookie
// lifetime and should match the token lifetime.
func NewAccountHandler(accounts Accounts, pages *Pages, sessionTTL time.Duration, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:   accounts,
		pages:      pages,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// HandleIndex renders the main page.
//
// HTTP: GET /
// Auth: optional
func (h *AccountHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}

	user, err := currentUser(r.Context(), h.accounts)
	if err != nil {
		h.logger.Error("index: loading user", slog.String("error", err.Error()))
	}
	if user != nil {
		data["User"] = user
		history, err := h.accounts.History(r.Context(), user.ID)
		if err != nil {
			h.logger.Error("index: loading history",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		data["History"] = history
	}

	h.pages.Render(w, r, http.StatusOK, "index", data)
}

// HandleSignupPage renders the signup form.
//
// HTTP: GET /signup
func (h *AccountHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "signup", map[string]any{"Title": "Sign up | " + siteTitle})
}

// HandleSignup creates an account from the signup form.
//
// HTTP: POST /signup
//
// Every outcome is a redirect with a flash message (post/redirect/get):
// validation errors and taken names go back to /signup, success goes to
// /login.
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, "error", service.MsgFieldsRequired)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	user, err := h.accounts.Signup(r.Context(), service.SignupInput{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Email:           r.PostFormValue("email"),
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && statusFor(err) < http.StatusInternalServerError {
			middleware.SetFlash(w, "error", appErr.Message)
			http.Redirect(w, r, "/signup", http.StatusSeeOther)
			return
		}
		h.logger.Error("signup failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("signup complete", slog.String("userID", user.ID))

	middleware.SetFlash(w, "success", service.MsgSignupSuccess)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLoginPage renders the login form.
//
// HTTP: GET /login
func (h *AccountHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "login", map[string]any{
		"Title":    "Login | " + siteTitle,
		"Username": "",
	})
}

// HandleLogin verifies the credentials and starts a session.
//
// HTTP: POST /login
//
// On failure the form is rendered again with status 200 and the entered
// username kept; no cookie is set.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")

	res, err := h.accounts.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) || errors.Is(err, apperror.ErrValidation) {
			h.pages.Render(w, r, http.StatusOK, "login", map[string]any{
				"Title":    "Login | " + siteTitle,
				"Error":    service.MsgLoginFailed,
				"Username": username,
			})
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.sessionTTL)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout ends the session.
//
// HTTP: GET /logout
// Auth: required
//
// Sessions are stateless JWTs, so logging out only drops the cookie.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleHistory returns the caller's summaries, oldest first.
//
// HTTP: GET /history
// Auth: required
func (h *AccountHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}

	history, err := h.accounts.History(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []model.ChatHistory{}
	}

	writeJSON(w, http.StatusOK, history)
}

// UserLookup resolves the session's user ID to an account.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// currentUser returns the logged-in user, or nil for anonymous requests.
// A token for an account that no longer exists counts as anonymous.
func currentUser(ctx context.Context, users UserLookup) (*model.User, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
