package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/consent"
	"leukemia-care-portal/internal/platform/respond"
)

// ConsentLookup reports the consent state of a form; consent.Service
// satisfies it.
type ConsentLookup interface {
	Status(ctx context.Context, formID string) (consent.Status, error)
}

type Handler struct {
	svc      Service
	consents ConsentLookup
}

func NewHandler(svc Service, consents ConsentLookup) *Handler {
	return &Handler{svc: svc, consents: consents}
}

type DownloadRequest struct {
	PIN    string `json:"pin"`
	FormID string `json:"form_id,omitempty"`
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if err := h.svc.Authorize(req.PIN); err != nil {
		respond.Error(w, err)
		return
	}

	var plan *Plan
	if req.FormID != "" && h.consents != nil {
		st, err := h.consents.Status(r.Context(), req.FormID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if st.ConsentGiven && st.Treatment != nil {
			plan = &Plan{Treatment: *st.Treatment}
		}
	}

	f, err := h.svc.Download(r.Context(), plan)
	if err != nil {
		respond.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/report", h.Download)
}
