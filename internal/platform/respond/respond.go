package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"leukemia-care-portal/internal/platform/apperrors"
)

type errorBody struct {
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
	Fields  []string            `json:"fields,omitempty"`
}

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// Error writes err as the single message of a failed action. Errors that are
// not AppErrors are reported as internal without leaking their text.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.Error().Err(err).Msg("unclassified error")
		appErr = apperrors.NewInternal("internal error", err)
	}
	if appErr.Type == apperrors.TypeInternal || appErr.Type == apperrors.TypeNetwork {
		log.Warn().Err(appErr).Msg("request failed")
	}
	JSON(w, StatusFor(appErr.Type), map[string]errorBody{
		"error": {Type: appErr.Type, Message: appErr.Message, Fields: appErr.Fields},
	})
}

// BadRequest is a shorthand for malformed payloads.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apperrors.NewValidation(message))
}

func StatusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.TypePermissionDenied:
		return http.StatusForbidden
	case apperrors.TypeNoDevice:
		return http.StatusUnprocessableEntity
	case apperrors.TypeUnsupportedCodec:
		return http.StatusUnsupportedMediaType
	case apperrors.TypeNetwork:
		return http.StatusBadGateway
	case apperrors.TypeValidation:
		return http.StatusBadRequest
	case apperrors.TypeInvalidCredentials:
		return http.StatusUnauthorized
	case apperrors.TypeNotFound:
		return http.StatusNotFound
	case apperrors.TypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
