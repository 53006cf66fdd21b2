package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/services"
	"github.com/orderdesk/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(okHandler))

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{name: "no user", ctx: context.Background(), want: http.StatusUnauthorized},
		{name: "regular", ctx: withUser(context.Background(), types.User{ID: 1}), want: http.StatusForbidden},
		{name: "admin", ctx: withUser(context.Background(), types.User{ID: 1, Admin: true}), want: http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(okHandler)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/requests", nil))

	out := buf.String()
	assert.Contains(t, out, `msg="http request"`)
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/requests")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "request_id=")
}

type countingRecorder struct {
	events map[string]int
}

func (c *countingRecorder) AuthEvent(event, outcome string) {
	c.events[event+"/"+outcome]++
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, outcome(nil))
	assert.Equal(t, OutcomeRejected, outcome(services.ErrUnauthorized, services.ErrUnauthorized))
	assert.Equal(t, OutcomeError, outcome(errors.New("db"), services.ErrUnauthorized))
}

func TestRecorderOrNop(t *testing.T) {
	assert.NotPanics(t, func() { recorderOrNop(nil).AuthEvent(EventLogin, OutcomeSuccess) })

	rec := &countingRecorder{events: map[string]int{}}
	recorderOrNop(rec).AuthEvent(EventLogin, OutcomeSuccess)
	assert.Equal(t, 1, rec.events["login/success"])
}
