package analysis

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/platform/respond"
)

// formOverhead is the room left in an analysis body for everything but the
// encoded image.
const formOverhead = 1 << 20

type Handler struct {
	svc      Service
	maxImage int64
}

// maxAnalyzeBody bounds a JSON analysis request: the image limit grown by
// base64 encoding, plus the form itself.
func (h *Handler) maxAnalyzeBody() int64 {
	return int64(base64.StdEncoding.EncodedLen(int(h.maxImage))) + formOverhead
}

func NewHandler(svc Service, maxImage int64) *Handler {
	if maxImage <= 0 {
		maxImage = 20 << 20
	}
	return &Handler{svc: svc, maxImage: maxImage}
}

// AnalyzeRequest carries the form as entered. Image is base64, optionally
// as a data URL straight from the browser preview.
type AnalyzeRequest struct {
	Form          TreatmentForm `json:"form"`
	FinancialCost *float64      `json:"financial_cost,omitempty"`
	Image         string        `json:"image,omitempty"`
	ImageName     string        `json:"image_name,omitempty"`
}

type FinancialBurdenRequest struct {
	Cost float64 `json:"cost"`
}

type FinancialBurdenResponse struct {
	FinancialBurden string `json:"financial_burden"`
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAnalyzeBody())

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.BadRequest(w, "request too large")
			return
		}
		respond.BadRequest(w, "Invalid request")
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		respond.BadRequest(w, "image must be base64 encoded")
		return
	}
	if int64(len(image)) > h.maxImage {
		respond.BadRequest(w, "request too large")
		return
	}
	if req.Form == nil {
		req.Form = TreatmentForm{}
	}

	res, err := h.svc.Analyze(r.Context(), Request{
		Form:          req.Form,
		FinancialCost: req.FinancialCost,
		Image:         image,
		ImageName:     req.ImageName,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImage)
	if err := r.ParseMultipartForm(h.maxImage); err != nil && err != http.ErrNotMultipart {
		respond.BadRequest(w, "image too large or unreadable")
		return
	}

	var (
		data []byte
		name string
	)
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		name = header.Filename
		if data, err = io.ReadAll(file); err != nil {
			respond.BadRequest(w, "image too large or unreadable")
			return
		}
	}

	res, err := h.svc.AnalyzeImage(r.Context(), data, name)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.NewForm())
}

func (h *Handler) FinancialBurden(w http.ResponseWriter, r *http.Request) {
	var req FinancialBurdenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	respond.JSON(w, http.StatusOK, FinancialBurdenResponse{FinancialBurden: h.svc.FinancialBurden(req.Cost)})
}

func decodeImage(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/analysis", h.Analyze)
	r.Get("/analysis/form", h.NewForm)
	r.Post("/analysis/financial-burden", h.FinancialBurden)
	r.Post("/image-analysis", h.AnalyzeImage)
}
