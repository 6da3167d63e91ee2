package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/auth"
	"leukemia-care-portal/internal/platform/respond"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type SendRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	reply, err := h.svc.Send(r.Context(), auth.ViewerKey(r.Context()), req.Text)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, reply)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.History(r.Context(), auth.ViewerKey(r.Context()))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context(), auth.ViewerKey(r.Context())); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/chat", h.History)
	r.Post("/chat", h.Send)
	r.Delete("/chat", h.Reset)
}
