package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/services"
)

// UserHandler provides HTTP handlers for accounts.
type UserHandler struct {
	userService *services.UserService
	logger      logging.Logger
}

func NewUserHandler(userService *services.UserService, logger logging.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers account routes. Signup is public; everything else
// requires a bearer token.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/", handler.Signup)
	r.With(authMiddleware, RequireAdmin).Get("/", handler.List)
	r.Route("/{userID}", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

// SignupRequest is the public registration payload. Privilege fields are
// deliberately absent. Lengths follow the users table columns; bcrypt reads
// at most 72 bytes of a password.
type SignupRequest struct {
	Name     string `json:"name" validate:"max=50"`
	Email    string `json:"email" validate:"required,max=255,email"`
	Password string `json:"password" validate:"required,max=72"`
	Remember bool   `json:"remember"`
}

func (req *SignupRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitnil,max=50"`
	Email    *string `json:"email" validate:"omitnil,max=255,email"`
	Password *string `json:"password" validate:"omitnil,min=1,max=72"`
}

func (req *UpdateUserRequest) normalize() {
	for _, field := range []*string{req.Name, req.Email} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

type DeleteUserRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Signup(r.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info(r.Context(), "user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	page, err := h.userService.List(r.Context(), actor, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Update(r.Context(), actor, id, services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var req DeleteUserRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.userService.Delete(r.Context(), actor, id, req.Confirm); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info(r.Context(), "user deleted", "user_id", id, "actor_id", actor.ID)
	w.WriteHeader(http.StatusNoContent)
}
