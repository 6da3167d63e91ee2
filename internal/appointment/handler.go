package appointment

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), auth.ViewerKey(r.Context()))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	a, err := h.svc.Act(r.Context(), auth.ViewerKey(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

func (h *Handler) ReferralDoctors(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, ReferralDoctors)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req Booking
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	res, err := h.svc.Book(r.Context(), auth.ViewerKey(r.Context()), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Booked(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Booked(r.Context(), auth.ViewerKey(r.Context()))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// RegisterDoctorRoutes mounts the doctor's appointment review.
func RegisterDoctorRoutes(r chi.Router, h *Handler) {
	r.Get("/appointments", h.List)
	r.Get("/appointments/referral-doctors", h.ReferralDoctors)
	r.Post("/appointments/{id}/action", h.Act)
}

// RegisterFamilyRoutes mounts booking for family members.
func RegisterFamilyRoutes(r chi.Router, h *Handler) {
	r.Get("/appointments", h.Booked)
	r.Post("/appointments", h.Book)
}
