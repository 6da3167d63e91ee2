package dashboard

import (
	"net/http"

	"leukemia-care-portal/internal/platform/respond"
)

type Handler struct {
	src Source
}

func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	v, err := h.src.Doctor(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) Patient(w http.ResponseWriter, r *http.Request) {
	v, err := h.src.Patient(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) Family(w http.ResponseWriter, r *http.Request) {
	v, err := h.src.Family(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
