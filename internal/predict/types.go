package predict

import (
	"encoding/json"
	"fmt"
)

// EthicalRequest carries the ethics-relevant subset of a treatment form.
type EthicalRequest struct {
	TreatmentType            string `json:"treatment_type"`
	LeukemiaStage            string `json:"leukemia_stage"`
	PriorTreatmentHistory    string `json:"prior_treatment_history"`
	Dosage                   string `json:"dosage"`
	PatientAge               string `json:"patient_age"`
	PatientConsent           string `json:"patient_consent"`
	FinancialBurden          string `json:"financial_burden"`
	ComplianceWithGuidelines string `json:"compliance_with_guidelines"`
	OvertreatmentRisk        string `json:"overtreatment_risk"`
}

const (
	VerdictEthical    = "Ethical"
	VerdictNonEthical = "Non-Ethical"
)

type EthicalResponse struct {
	EthicalViolation string  `json:"ethical_violation"`
	Confidence       float64 `json:"confidence"`
}

type EffectivenessRequest struct {
	ANCMean      string `json:"ANC_mean"`
	PLTMean      string `json:"PLT_mean"`
	ANCStability string `json:"anc_stability"`
	PLTStability string `json:"plt_stability"`
}

type EffectivenessResponse struct {
	RFProbability   float64 `json:"rf_probability,omitempty"`
	GBProbability   float64 `json:"gb_probability,omitempty"`
	AvgProbability  float64 `json:"avg_probability"`
	LikelyEffective bool    `json:"likely_effective"`
}

type DQNRequest struct {
	WBCCount            string `json:"WBC_Count"`
	ANC                 string `json:"ANC"`
	PlateletCount       string `json:"Platelet_Count"`
	Hemoglobin          string `json:"Hemoglobin"`
	DiseaseStage        string `json:"Disease_Stage"`
	SurvivalProbability string `json:"Survival_Probability"`
}

type DQNResponse struct {
	Condition            string `json:"Condition,omitempty"`
	RecommendedTreatment string `json:"Recommended_Treatment"`
	CorrectTreatment     string `json:"Correct_Treatment,omitempty"`
	RewardScore          int    `json:"Reward_Score,omitempty"`
	Error                string `json:"error,omitempty"`
}

// ProbabilityPair is one [class, probability] entry of sorted_probabilities.
type ProbabilityPair struct {
	Class       string
	Probability float64
}

func (p *ProbabilityPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("probability pair: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Class); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Probability)
}

func (p ProbabilityPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Class, p.Probability})
}

type ImageResponse struct {
	Prediction          string             `json:"prediction"`
	Confidence          *float64           `json:"confidence,omitempty"`
	Probabilities       map[string]float64 `json:"probabilities,omitempty"`
	SortedProbabilities []ProbabilityPair  `json:"sorted_probabilities,omitempty"`
	Error               string             `json:"error,omitempty"`
}

type AskResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// AppointmentRecord is an appointment as stored by the prediction service.
type AppointmentRecord struct {
	ID          string `json:"id"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	DoctorNotes string `json:"doctor_notes,omitempty"`
	ReferredTo  string `json:"referred_to,omitempty"`
}

type AppointmentSubmission struct {
	ID          string `json:"id"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Type        string `json:"type"`
	Message     string `json:"message"`
}

type SubmitAppointmentResponse struct {
	ConfirmationID string `json:"confirmationId"`
	ID             string `json:"id"`
	Msg            string `json:"msg,omitempty"`
}

// Confirmation returns whichever identifier the service handed back.
func (r SubmitAppointmentResponse) Confirmation() string {
	if r.ConfirmationID != "" {
		return r.ConfirmationID
	}
	return r.ID
}
