package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/service"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// SessionCookies writes and clears the session cookie.
type SessionCookies struct {
	TTL    time.Duration
	Secure bool // set on HTTPS deployments
}

func (c SessionCookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthHandler serves credential sign-up/sign-in, the OAuth redirect flow
// and the session endpoints.
//
//   - HandleSignUp / HandleSignIn  → issue the session cookie
//   - HandleSignOut                → clear it
//   - HandleSession                → return the current principal
//   - HandleOAuthLogin / Callback  → provider redirect and code exchange
type AuthHandler struct {
	auth    *service.AuthService
	cookies SessionCookies
	logger  *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, cookies SessionCookies, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		cookies: cookies,
		logger:  logger,
	}
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleSignUp creates a credentials account and signs it in.
//
// HTTP: POST /api/auth/signup  {"name","email","password"} → 201 principal
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, res.Token)
	writeJSON(w, http.StatusCreated, model.PrincipalOf(res.User))
}

// HandleSignIn checks credentials and sets the session cookie.
//
// HTTP: POST /api/auth/signin  {"email","password"} → 200 principal
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, res.Token)
	writeJSON(w, http.StatusOK, model.PrincipalOf(res.User))
}

// HandleSignOut clears the session cookie. It succeeds whether or not the
// caller was signed in.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession returns the principal carried by the session cookie.
// Mounted behind auth.RequireAuth.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in required"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleProviders lists the configured OAuth providers so the sign-in page
// can show one button per provider.
func (h *AuthHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": h.auth.ProviderNames()})
}

// HandleOAuthLogin redirects to the provider's consent page.
//
// HTTP: GET /auth/{provider}/login
//
// A random state goes into a short-lived HttpOnly cookie and into the
// redirect; the callback only proceeds when the two match.
func (h *AuthHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.auth.Provider(name)
	if !ok {
		writeError(w, apperror.NotFound("auth provider", name))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleOAuthCallback completes the provider flow.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
//  1. Check the state against the cookie (single use)
//  2. Exchange the code for the provider profile
//  3. Sign in the linked user, or create and link one
//  4. Set the session cookie and go home
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.auth.Provider(name)
	if !ok {
		writeError(w, apperror.NotFound("auth provider", name))
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie", slog.String("provider", name))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", name))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", name),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	res, err := h.auth.LoginOAuth(r.Context(), profile)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			http.Redirect(w, r, "/?auth=conflict", http.StatusSeeOther)
		case errors.Is(err, apperror.ErrValidation):
			http.Redirect(w, r, "/?auth=noemail", http.StatusSeeOther)
		default:
			h.logger.Error("auth callback: sign-in failed",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
			http.Error(w, "authentication failed", http.StatusInternalServerError)
		}
		return
	}

	h.cookies.set(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
