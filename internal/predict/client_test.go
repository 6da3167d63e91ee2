package predict

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/platform/apperrors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestPredictEthical(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chemotherapy", body["treatment_type"])
		assert.Equal(t, "0.50", body["financial_burden"])

		w.Write([]byte(`{"ethical_violation":"Ethical","confidence":0.12}`))
	})

	out, err := c.PredictEthical(context.Background(), EthicalRequest{TreatmentType: "chemotherapy", FinancialBurden: "0.50"})
	require.NoError(t, err)
	assert.Equal(t, VerdictEthical, out.EthicalViolation)
	assert.InDelta(t, 0.12, out.Confidence, 1e-9)
}

func TestPredictEffectivenessAndTreatment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/effectiveness":
			w.Write([]byte(`{"rf_probability":0.7,"gb_probability":0.9,"avg_probability":0.8,"likely_effective":true}`))
		case "/dqn_predict":
			var body DQNRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "0.8", body.SurvivalProbability)
			w.Write([]byte(`{"Condition":"Severe","Recommended_Treatment":"Chemotherapy","Correct_Treatment":"Chemotherapy","Reward_Score":10}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	eff, err := c.PredictEffectiveness(context.Background(), EffectivenessRequest{ANCMean: "1.8"})
	require.NoError(t, err)
	assert.True(t, eff.LikelyEffective)
	assert.InDelta(t, 0.8, eff.AvgProbability, 1e-9)

	dqn, err := c.PredictTreatment(context.Background(), DQNRequest{SurvivalProbability: "0.8"})
	require.NoError(t, err)
	assert.Equal(t, "Chemotherapy", dqn.RecommendedTreatment)
	assert.Equal(t, 10, dqn.RewardScore)
}

func TestPredictImage_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cells.png", hdr.Filename)
		assert.Equal(t, []byte{1, 2, 3}, data)

		w.Write([]byte(`{"prediction":"ALL","probabilities":{"ALL":0.9,"Normal":0.1},"sorted_probabilities":[["ALL",0.9],["Normal",0.1]]}`))
	})

	out, err := c.PredictImage(context.Background(), []byte{1, 2, 3}, "cells.png")
	require.NoError(t, err)
	assert.Equal(t, "ALL", out.Prediction)
	require.Len(t, out.SortedProbabilities, 2)
	assert.Equal(t, ProbabilityPair{Class: "ALL", Probability: 0.9}, out.SortedProbabilities[0])
	assert.Nil(t, out.Confidence)
}

func TestNon2xxIsNetworkFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Models not loaded"}`, http.StatusInternalServerError)
	})

	_, err := c.PredictEffectiveness(context.Background(), EffectivenessRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.TypeNetwork))
	assert.Contains(t, err.Error(), "Models not loaded")
}

func TestTransportErrorIsNetworkFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	err := c.SubmitForm(context.Background(), map[string]interface{}{"data_type": "x"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.TypeNetwork))
}

func TestAppointments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/get-appointments":
			w.Write([]byte(`[{"id":"-Nabc","patientName":"Jane","date":"2024-02-01","time":"10:00","type":"checkup","doctor_notes":"bring labs"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/submit-appointment":
			w.Write([]byte(`{"msg":"Appointment saved","id":"-Nxyz"}`))
		default:
			http.NotFound(w, r)
		}
	})

	list, err := c.GetAppointments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bring labs", list[0].DoctorNotes)

	res, err := c.SubmitAppointment(context.Background(), AppointmentSubmission{ID: "1", PatientName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "-Nxyz", res.Confirmation())
}

func TestAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is ANC?", body["query"])
		w.Write([]byte(`{"response":"Absolute neutrophil count.","conversation_id":"u1"}`))
	})

	out, err := c.Ask(context.Background(), "what is ANC?")
	require.NoError(t, err)
	assert.Equal(t, "Absolute neutrophil count.", out.Response)
}
