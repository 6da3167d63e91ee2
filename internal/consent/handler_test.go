package consent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConsentRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := NewService(ServiceConfig{}, NewMemoryBlobStore("/blobs", 0), nil, zerolog.Nop())
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, 0))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_SubmitWithoutRecording(t *testing.T) {
	h := setupConsentRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.NotEmpty(t, st.FormID)
	assert.Equal(t, StateIdle, st.Video.State)

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, MsgRecordingRequired, body["error"]["message"])
}

func TestHandler_TextConsent(t *testing.T) {
	h := setupConsentRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/text-consent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "noted in your medical record")

	rec = doJSON(t, h, http.MethodPost, "/", nil)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/text-consent", TextConsentRequest{Confirmed: false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/text-consent", TextConsentRequest{Confirmed: true})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, MsgConsentRecorded, resp.Message)
	assert.Equal(t, MethodText, resp.Status.Method)
}

func TestHandler_StartAndStop(t *testing.T) {
	h := setupConsentRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/", nil)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/audio/start", StartRequest{SupportedTypes: []string{"audio/webm"}})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/video/start", StartRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/video/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+st.FormID+"/chunks", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/"+st.FormID+"/treatment", TreatmentRequest{TreatmentID: "targeted"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/"+st.FormID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_ListTreatments(t *testing.T) {
	h := setupConsentRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/treatments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var opts []TreatmentOption
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&opts))
	require.Len(t, opts, 4)
	assert.Equal(t, "Clinical Trial Protocol", opts[3].Name)
}
