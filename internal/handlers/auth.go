package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/services"
	"github.com/orderdesk/apiserver/types"
)

const tokenTypeBearer = "bearer"

// AuthHandler provides login, logout and identity endpoints.
type AuthHandler struct {
	authService *services.AuthService
	logger      logging.Logger
	recorder    AuthRecorder
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, logger logging.Logger, rec AuthRecorder) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		recorder:    recorderOrNop(rec),
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/login", handler.Login)
	r.Post("/login-form", handler.LoginForm)
	r.Post("/logout", handler.Logout)
	r.With(authMiddleware).Get("/me", handler.Me)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember *bool  `json:"remember,omitempty"`
}

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        types.User `json:"user"`
}

// Login verifies JSON credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.login(w, r, req)
}

// LoginForm accepts the OAuth2 password form: username carries the email.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	req := LoginRequest{
		Email:    r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	if raw := strings.TrimSpace(r.PostForm.Get("remember")); raw != "" {
		remember, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid remember")
			return
		}
		req.Remember = &remember
	}
	h.login(w, r, req)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password, req.Remember)
	h.recorder.AuthEvent(EventLogin, outcome(err, services.ErrInvalidCredentials))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   result.ExpiresAt,
		User:        result.User,
	})
}

// Logout revokes the presented bearer token. It does not require the token
// to be valid, only known and still active.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err = h.authService.Logout(r.Context(), token)
	h.recorder.AuthEvent(EventLogout, outcome(err, services.ErrAlreadyInvalid))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
