package handlers

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"budget-planner/internal/auth"
	"budget-planner/internal/models"
	"budget-planner/internal/storage"
	"budget-planner/web"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// SessionContextKey is the context key for the authenticated session.
	SessionContextKey contextKey = "session"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName carries a one-shot message across a redirect.
	FlashCookieName = "flash"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	hasher       auth.PasswordHasher
	templates    *template.Template
	secureCookie bool
	sessionTTL   time.Duration
}

// NewHandlers creates a new Handlers instance with templates parsed from the
// embedded filesystem.
func NewHandlers(db *storage.DB, hasher auth.PasswordHasher, secureCookie bool, sessionTTL time.Duration) (*Handlers, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handlers{
		db:           db,
		hasher:       hasher,
		templates:    tmpl,
		secureCookie: secureCookie,
		sessionTTL:   sessionTTL,
	}, nil
}

// SessionFromContext retrieves the authenticated session from request context.
func SessionFromContext(r *http.Request) *models.Session {
	if sess, ok := r.Context().Value(SessionContextKey).(*models.Session); ok {
		return sess
	}
	return nil
}

// RequireAuth wraps handlers to require a valid session. Requests without one
// are redirected to /login, never shown an error page.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sess, err := h.db.ValidateSession(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recover catches panics from request handling, logs the raw error
// server-side only, and serves the generic 500 page.
func (h *Handlers) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "panic in request handler",
					"error", rec, "method", r.Method, "url", r.URL.Path)
				h.renderStatus(w, http.StatusInternalServerError, "500.html", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logging logs each completed request with method, path, status, and duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.InfoContext(r.Context(), "request completed",
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// AuthViewModel holds data for the login and register pages.
type AuthViewModel struct {
	Error string
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", AuthViewModel{})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "register.html", AuthViewModel{Error: "Registration failed"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.render(w, r, "register.html", AuthViewModel{Error: "Registration failed"})
		return
	}

	hash, err := h.hasher.Hash(password)
	if err != nil {
		slog.ErrorContext(r.Context(), "password hash failed", "error", err)
		h.render(w, r, "register.html", AuthViewModel{Error: "Registration failed"})
		return
	}

	if _, err := h.db.CreateUser(username, hash); err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			h.render(w, r, "register.html", AuthViewModel{Error: "Username already exists"})
			return
		}
		slog.ErrorContext(r.Context(), "create user failed", "error", err, "username", username)
		h.render(w, r, "register.html", AuthViewModel{Error: "Registration failed"})
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the dashboard
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", AuthViewModel{})
}

// Login verifies credentials, regenerates the session, and sets the cookie.
// The error message never reveals whether the username or password was wrong.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", AuthViewModel{Error: "Login failed"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := h.db.GetUserByUsername(username)
	if err != nil || !h.hasher.Verify(password, user.PasswordHash) {
		h.render(w, r, "login.html", AuthViewModel{Error: "Invalid username or password"})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "session token generation failed", "error", err)
		h.render(w, r, "login.html", AuthViewModel{Error: "Login failed"})
		return
	}

	// Regeneration must complete before the new identity is attached to the
	// response; on failure the login aborts rather than reuse a stale session.
	expiresAt := time.Now().Add(h.sessionTTL)
	if err := h.db.CreateSession(token, user.ID, user.Username, expiresAt); err != nil {
		slog.ErrorContext(r.Context(), "session regeneration failed", "error", err, "user_id", user.ID)
		h.render(w, r, "login.html", AuthViewModel{Error: "Login failed"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout destroys the session and redirects to the login page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "delete session failed", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlash stores a one-shot message shown on the next dashboard render.
func (h *Handlers) setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash message, if any.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return cookie.Value
}

// NotFoundViewModel holds data for the 404 page.
type NotFoundViewModel struct {
	URL string
}

// NotFound renders the 404 page with the requested URL echoed.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, http.StatusNotFound, "404.html", NotFoundViewModel{URL: r.URL.RequestURI()})
}

// serverError logs the raw error server-side and serves the generic 500 page.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		"error", err, "method", r.Method, "url", r.URL.Path)
	h.renderStatus(w, http.StatusInternalServerError, "500.html", nil)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, http.StatusOK, viewName, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, status int, viewName string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, viewName, data); err != nil {
		slog.Error("template execution failed", "error", err, "template", viewName)
	}
}
