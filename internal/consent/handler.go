package consent

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/platform/respond"
)

type Handler struct {
	svc      Service
	maxChunk int64
}

func NewHandler(svc Service, maxChunk int64) *Handler {
	if maxChunk <= 0 {
		maxChunk = 10 << 20
	}
	return &Handler{svc: svc, maxChunk: maxChunk}
}

type StartRequest struct {
	Devices        []DeviceInfo `json:"devices"`
	SupportedTypes []string     `json:"supported_types"`
}

type RespondRequest struct {
	RequestID string `json:"request_id"`
	Granted   bool   `json:"granted"`
}

type TreatmentRequest struct {
	TreatmentID string `json:"treatment_id"`
}

type TextConsentRequest struct {
	Confirmed bool `json:"confirmed"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Status  Status `json:"status"`
}

type TextConsentPrompt struct {
	Confirm string `json:"confirm"`
}

func (h *Handler) ListTreatments(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, TreatmentOptions)
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Create(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, st)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (h *Handler) CloseForm(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), chi.URLParam(r, "formID")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectTreatment(w http.ResponseWriter, r *http.Request) {
	var req TreatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	st, err := h.svc.SelectTreatment(r.Context(), chi.URLParam(r, "formID"), req.TreatmentID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

// StartRecording accepts the browser's device inventory and returns while
// the form is still Requesting.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}

	mode := Mode(chi.URLParam(r, "mode"))
	st, err := h.svc.Start(r.Context(), chi.URLParam(r, "formID"), mode, Declaration{
		Devices:        req.Devices,
		SupportedTypes: req.SupportedTypes,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, st)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	st, err := h.svc.Respond(r.Context(), chi.URLParam(r, "formID"), req.RequestID, req.Granted)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

// PushChunk takes one raw media fragment as the request body.
func (h *Handler) PushChunk(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxChunk))
	if err != nil {
		respond.BadRequest(w, "chunk too large or unreadable")
		return
	}
	if err := h.svc.PushChunk(r.Context(), chi.URLParam(r, "formID"), data); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stop(r.Context(), chi.URLParam(r, "formID"), Mode(chi.URLParam(r, "mode")))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (h *Handler) Retake(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Retake(r.Context(), chi.URLParam(r, "formID"), Mode(chi.URLParam(r, "mode")))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	msg, st, err := h.svc.Submit(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, MessageResponse{Message: msg, Status: st})
}

func (h *Handler) TextConsentPrompt(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, TextConsentPrompt{Confirm: MsgConfirmTextConsent})
}

func (h *Handler) TextConsent(w http.ResponseWriter, r *http.Request) {
	var req TextConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	msg, st, err := h.svc.TextConsent(r.Context(), chi.URLParam(r, "formID"), req.Confirmed)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, MessageResponse{Message: msg, Status: st})
}

// GetBlob serves a finalized recording. The route sits behind bearer auth,
// so blob_url cannot go straight into a media element: the browser fetches
// it with its Authorization header and previews the bytes via an object URL.
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	b, data, err := h.svc.Blob(r.Context(), chi.URLParam(r, "blobID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", b.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(b.Size, 10))
	w.Header().Set("ETag", `"`+b.Hash+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RegisterRoutes mounts the consent form under r.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/treatments", h.ListTreatments)
	r.Get("/text-consent", h.TextConsentPrompt)
	r.Get("/blobs/{blobID}", h.GetBlob)
	r.Post("/", h.CreateForm)
	r.Route("/{formID}", func(r chi.Router) {
		r.Get("/", h.GetStatus)
		r.Delete("/", h.CloseForm)
		r.Put("/treatment", h.SelectTreatment)
		r.Post("/respond", h.Respond)
		r.Post("/chunks", h.PushChunk)
		r.Post("/submit", h.Submit)
		r.Post("/text-consent", h.TextConsent)
		r.Post("/{mode}/start", h.StartRecording)
		r.Post("/{mode}/stop", h.StopRecording)
		r.Post("/{mode}/retake", h.Retake)
	})
}
