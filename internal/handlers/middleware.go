package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/services"
)

// Auth event names reported to an AuthRecorder.
const (
	EventLogin    = "login"
	EventValidate = "validate"
	EventLogout   = "logout"
)

// Outcomes reported to an AuthRecorder.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthRecorder counts authentication outcomes.
type AuthRecorder interface {
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

func recorderOrNop(rec AuthRecorder) AuthRecorder {
	if rec == nil {
		return nopRecorder{}
	}
	return rec
}

// outcome classifies err for an AuthRecorder.
func outcome(err error, rejected ...error) string {
	if err == nil {
		return OutcomeSuccess
	}
	for _, r := range rejected {
		if errors.Is(err, r) {
			return OutcomeRejected
		}
	}
	return OutcomeError
}

// RequireAuth validates the bearer token and stores its user in the request
// context. Every rejection is a 401 with the same body.
func RequireAuth(authService *services.AuthService, logger logging.Logger, rec AuthRecorder) func(http.Handler) http.Handler {
	rec = recorderOrNop(rec)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				rec.AuthEvent(EventValidate, OutcomeRejected)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := authService.Validate(r.Context(), token)
			rec.AuthEvent(EventValidate, outcome(err, services.ErrUnauthorized))
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireAdmin rejects non-admin users. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := services.AuthorizeAdmin(user); err != nil {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}
