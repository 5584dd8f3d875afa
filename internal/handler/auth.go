package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chetan-code/tasktracker/internal/config"
	"github.com/chetan-code/tasktracker/internal/models"
	"github.com/chetan-code/tasktracker/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/markbates/goth/gothic"
)

const sessionCookie = "session_token"

// we are doing this to avoid collision with libraries
type contextKey string

const claimsKey contextKey = "sessionClaims"

func claimsFromContext(ctx context.Context) (*models.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*models.Claims)
	return c, ok
}

// AuthMiddleware lets a request through only with a valid session token.
// Whether the token still names the active session is checked by acquire.
func (h *TodoHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			HomeRedirect(w, r)
			return
		}

		claims, err := h.VerifyToken(cookie.Value)
		if err != nil {
			slog.Debug("session_token_rejected", "ip", r.RemoteAddr, "error", err)
			HomeRedirect(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// acquire takes the core lock if the request's token belongs to the active
// session. The caller must unlock h.mu when it returns true.
func (h *TodoHandler) acquire(r *http.Request) bool {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return false
	}

	h.mu.Lock()
	if !h.matchesActive(claims) {
		h.mu.Unlock()
		return false
	}
	return true
}

// matchesActive reports whether claims name the active session. Caller
// holds h.mu.
func (h *TodoHandler) matchesActive(claims *models.Claims) bool {
	tk, ok := h.store.Ticket()
	return ok && tk.Gen() == claims.Gen && tk.Email == claims.Email
}

// requestClaims verifies the session cookie of r, if any.
func (h *TodoHandler) requestClaims(r *http.Request) (*models.Claims, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	claims, err := h.VerifyToken(cookie.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (h *TodoHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	//show login page
	if r.Method == http.MethodGet {
		data := h.newPage()
		if r.URL.Query().Get("registered") != "" {
			data.Notice = "Sign-up successful! Please log in."
		}
		h.render(w, "login.html", data)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if err := session.ValidateLogin(email, password); err != nil {
		h.renderFormErrors(w, "login.html", err, map[string]string{"email": email})
		return
	}

	var id models.Identity
	switch h.authMode {
	case config.AuthModeRegistered:
		h.mu.Lock()
		found, err := h.store.Authenticate(email, password)
		h.mu.Unlock()
		if err != nil {
			slog.Info("login_rejected", "email", email, "ip", r.RemoteAddr)
			data := h.newPage()
			data.Errors = map[string]string{"general": "Invalid email or password."}
			data.Form = map[string]string{"email": email}
			w.WriteHeader(http.StatusUnauthorized)
			h.render(w, "login.html", data)
			return
		}
		id = found
	default:
		//demo trust model: a well formed email is taken at its word
		id = session.DemoIdentity(email)
	}

	if err := h.startSession(w, id); err != nil {
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (h *TodoHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, "signup.html", h.newPage())
		return
	}

	req := session.RegisterRequest{
		Name:            r.FormValue("name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
	}

	h.mu.Lock()
	acc, err := h.store.Register(req)
	h.mu.Unlock()
	if err != nil {
		h.renderFormErrors(w, "signup.html", err, map[string]string{"name": req.Name, "email": req.Email})
		return
	}

	slog.Info("account_registered", "email", acc.Email)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// beginGoogleAuth starts the Google flow. A browser that already holds
// the active session is sent straight back to its tasks.
func (h *TodoHandler) beginGoogleAuth(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.requestClaims(r); ok {
		h.mu.Lock()
		active := h.matchesActive(claims)
		h.mu.Unlock()
		if active {
			http.Redirect(w, r, "/todos", http.StatusSeeOther)
			return
		}
	}

	//gothic reads the provider from the query; there is only google
	q := r.URL.Query()
	q.Set("provider", "google")
	r.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(w, r)
}

func (h *TodoHandler) AuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	user, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		slog.Error("google_auth_failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := models.Identity{
		Email:  user.Email,
		Name:   user.Name,
		Avatar: user.AvatarURL,
	}
	if err := h.startSession(w, id); err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// startSession replaces the active session with id, issues its token and
// starts the profile and task loads for it.
func (h *TodoHandler) startSession(w http.ResponseWriter, id models.Identity) error {
	h.mu.Lock()
	tk := h.store.Login(id)
	h.mu.Unlock()

	token, err := h.GenerateJWT(tk)
	if err != nil {
		slog.Error("jwt_generation_failed", "email", tk.Email, "error", err)
		return err
	}

	//token is ready - set cookie
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true, //not visible to JS [IMP for security]
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("session_started", "email", tk.Email, "gen", tk.Gen())
	h.loadSession(tk)
	return nil
}

// LogoutHandler ends the active session only for the token that owns it.
// Any other request just loses its cookie.
func (h *TodoHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.requestClaims(r); ok {
		h.mu.Lock()
		if h.matchesActive(claims) {
			h.store.Logout()
			slog.Info("logout_success", "email", claims.Email, "ip", r.RemoteAddr)
		}
		h.mu.Unlock()
	}

	// clear session cookie
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true, //js cant touch it
		Secure:   h.cookieSecure,
	})

	//clear gothic session
	if h.googleEnabled {
		gothic.Logout(w, r)
	}
	HomeRedirect(w, r)
}

// GenerateJWT signs a token for the session tk names
func (h *TodoHandler) GenerateJWT(tk session.Ticket) (string, error) {
	expireTime := time.Now().Add(24 * time.Hour)

	claims := &models.Claims{
		Email: tk.Email,
		Gen:   tk.Gen(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	//create the token using hs256 algo
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	//sign with the secret key and return
	return token.SignedString(h.jwtKey)
}

var errInvalidToken = errors.New("invalid session token")

func (h *TodoHandler) VerifyToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return h.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	return claims, nil
}
