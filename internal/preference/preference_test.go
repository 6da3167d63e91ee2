package preference

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/auth"
	"leukemia-care-portal/internal/platform/session"
)

func TestDarkMode_DefaultsOnAndIsPerViewer(t *testing.T) {
	svc := NewService(session.NewMemoryStore(), 0)
	ctx := context.Background()

	on, err := svc.DarkMode(ctx, "patient:a")
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, svc.SetDarkMode(ctx, "patient:a", false))
	on, err = svc.DarkMode(ctx, "patient:a")
	require.NoError(t, err)
	assert.False(t, on)

	on, err = svc.DarkMode(ctx, "family:b")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestHandler_DarkMode(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithViewer(req.Context(), auth.Viewer{Subject: "doctor@medicare.com", Role: auth.RoleDoctor})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	RegisterRoutes(r, NewHandler(NewService(session.NewMemoryStore(), 0)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dark-mode", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/dark-mode", bytes.NewReader([]byte(`{"enabled":false}`))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dark-mode", nil))
	var got DarkMode
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.False(t, got.Enabled)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/dark-mode", bytes.NewReader([]byte(`nope`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
