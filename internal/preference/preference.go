package preference

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/auth"
	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/platform/respond"
	"leukemia-care-portal/internal/platform/session"
)

const DefaultDarkMode = true

type DarkMode struct {
	Enabled bool `json:"enabled"`
}

type Service struct {
	store session.Store
	ttl   time.Duration
}

func NewService(store session.Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

func key(viewer string) string {
	return "pref:dark-mode:" + viewer
}

func (s *Service) DarkMode(ctx context.Context, viewer string) (bool, error) {
	var pref DarkMode
	ok, err := session.GetJSON(ctx, s.store, key(viewer), &pref)
	if err != nil {
		return false, apperrors.NewInternal("failed to load preferences", err)
	}
	if !ok {
		return DefaultDarkMode, nil
	}
	return pref.Enabled, nil
}

func (s *Service) SetDarkMode(ctx context.Context, viewer string, enabled bool) error {
	if err := session.SetJSON(ctx, s.store, key(viewer), DarkMode{Enabled: enabled}, s.ttl); err != nil {
		return apperrors.NewInternal("failed to save preferences", err)
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetDarkMode(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.svc.DarkMode(r.Context(), auth.ViewerKey(r.Context()))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, DarkMode{Enabled: enabled})
}

func (h *Handler) PutDarkMode(w http.ResponseWriter, r *http.Request) {
	var req DarkMode
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	if err := h.svc.SetDarkMode(r.Context(), auth.ViewerKey(r.Context()), req.Enabled); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/dark-mode", h.GetDarkMode)
	r.Put("/dark-mode", h.PutDarkMode)
}
