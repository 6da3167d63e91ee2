package analysis

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/predict"
	"leukemia-care-portal/internal/predict/predicttest"
)

func setupAnalysisRouter(t *testing.T, client *predicttest.MockClient) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(newTestService(t, client, Config{}), 0))
	return r
}

func TestHandler_AnalyzeMissingFields(t *testing.T) {
	client := new(predicttest.MockClient)
	h := setupAnalysisRouter(t, client)

	form := completeForm()
	form[FieldDosage] = ""
	form[FieldPLTStability] = ""
	body, _ := json.Marshal(AnalyzeRequest{Form: form})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analysis", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Please fill in all required fields: dosage, plt stability", resp["error"]["message"])
	assert.Empty(t, client.Calls)
}

func TestHandler_AnalyzeWithDataURLImage(t *testing.T) {
	client := new(predicttest.MockClient)
	expectHappyPath(client, 0.9, true)
	client.On("PredictImage", mock.Anything, []byte("pixels"), "cells.png").
		Return(&predict.ImageResponse{Prediction: "Normal"}, nil)
	h := setupAnalysisRouter(t, client)

	body, _ := json.Marshal(AnalyzeRequest{
		Form:      completeForm(),
		Image:     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("pixels")),
		ImageName: "cells.png",
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analysis", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotNil(t, res.ImageAnalysis)
	assert.Equal(t, "Normal", res.ImageAnalysis.Prediction)
	assert.Equal(t, ResultEffective, res.Effectiveness.Result)
}

func TestHandler_AnalyzeImageMultipart(t *testing.T) {
	client := new(predicttest.MockClient)
	client.On("PredictImage", mock.Anything, []byte("raw"), "blood.jpg").
		Return(&predict.ImageResponse{Prediction: "ALL", Probabilities: map[string]float64{"ALL": 0.6, "AML": 0.4}}, nil)
	client.On("SubmitForm", mock.Anything, mock.Anything).Return(nil)
	h := setupAnalysisRouter(t, client)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "blood.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("raw"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/image-analysis", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ImageResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "ALL", res.HighestProbability.Class)
}

func TestHandler_AnalyzeImageWithoutFile(t *testing.T) {
	h := setupAnalysisRouter(t, new(predicttest.MockClient))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/image-analysis", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgSelectImage)
}

func TestHandler_FinancialBurden(t *testing.T) {
	h := setupAnalysisRouter(t, new(predicttest.MockClient))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analysis/financial-burden", bytes.NewReader([]byte(`{"cost":150000}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp FinancialBurdenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1.00", resp.FinancialBurden)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analysis/form", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var form TreatmentForm
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&form))
	assert.Equal(t, "chemotherapy", form[FieldTreatmentType])
}

func TestHandler_AnalyzeRejectsOversizedBody(t *testing.T) {
	client := new(predicttest.MockClient)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(newTestService(t, client, Config{}), 8))

	post := func(req AnalyzeRequest) *httptest.ResponseRecorder {
		body, _ := json.Marshal(req)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analysis", bytes.NewReader(body)))
		return rec
	}

	rec := post(AnalyzeRequest{Form: completeForm(), Image: strings.Repeat("A", 2<<20)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request too large")

	rec = post(AnalyzeRequest{Form: completeForm(), Image: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-img"))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request too large")

	assert.Empty(t, client.Calls)
}
