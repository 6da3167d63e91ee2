package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/platform/respond"
)

type contextKey string

const viewerKey contextKey = "viewer"

// Viewer is the authenticated caller of a request.
type Viewer struct {
	Subject string
	Role    Role
}

func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

func ViewerFrom(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(Viewer)
	return v, ok
}

// ViewerKey scopes per-viewer session state. Unauthenticated callers share
// the anonymous bucket.
func ViewerKey(ctx context.Context) string {
	if v, ok := ViewerFrom(ctx); ok && v.Subject != "" {
		return string(v.Role) + ":" + v.Subject
	}
	return "anonymous"
}

// Authenticate requires a valid bearer token.
func Authenticate(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, apperrors.NewInvalidCredentials("missing authorization header"))
				return
			}
			tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
			claims, err := tokens.Parse(tokenString)
			if err != nil {
				respond.Error(w, apperrors.NewInvalidCredentials("invalid or expired session"))
				return
			}
			ctx := WithViewer(r.Context(), Viewer{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects viewers whose role is not listed. It must run after
// Authenticate.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, ok := ViewerFrom(r.Context())
			if !ok {
				respond.Error(w, apperrors.NewInvalidCredentials("missing authorization header"))
				return
			}
			for _, role := range roles {
				if v.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Error(w, apperrors.NewPermissionDenied("this area is not available for your role", nil))
		})
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request")
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/login", h.Login)
}
