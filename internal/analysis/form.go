package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"leukemia-care-portal/internal/platform/apperrors"
)

// TreatmentForm is the flat field set a doctor fills in before analysis.
type TreatmentForm map[string]string

const (
	FieldTreatmentType         = "treatment_type"
	FieldDosage                = "dosage"
	FieldLeukemiaStage         = "leukemia_stage"
	FieldPriorTreatmentHistory = "prior_treatment_history"
	FieldIsResponding          = "Is_Responding"
	FieldPatientAge            = "patient_age"
	FieldPatientID             = "patient_id"

	FieldANCMean      = "ANC_mean"
	FieldPLTMean      = "PLT_mean"
	FieldANCStability = "anc_stability"
	FieldPLTStability = "plt_stability"

	FieldWBCCount            = "WBC_Count"
	FieldANC                 = "ANC"
	FieldPlateletCount       = "Platelet_Count"
	FieldHemoglobin          = "Hemoglobin"
	FieldDiseaseStage        = "Disease_Stage"
	FieldSurvivalProbability = "Survival_Probability"

	FieldPatientConsent           = "patient_consent"
	FieldFinancialBurden          = "financial_burden"
	FieldComplianceWithGuidelines = "compliance_with_guidelines"
	FieldOvertreatmentRisk        = "overtreatment_risk"
)

// RequiredFields must be non-empty before any prediction call is made.
var RequiredFields = []string{
	FieldPatientAge,
	FieldDosage,
	FieldANCMean,
	FieldPLTMean,
	FieldANCStability,
	FieldPLTStability,
	FieldFinancialBurden,
}

// DefaultFinancialBurdenThreshold is the treatment cost that maps to a
// financial burden of 1.
const DefaultFinancialBurdenThreshold = 100000

// DefaultForm returns a blank form with the selector defaults filled in and
// a fresh six-digit patient id.
func DefaultForm(rng *rand.Rand) TreatmentForm {
	var id int
	if rng != nil {
		id = 100000 + rng.Intn(900000)
	} else {
		id = 100000 + rand.Intn(900000)
	}
	return TreatmentForm{
		FieldTreatmentType:            "chemotherapy",
		FieldDosage:                   "",
		FieldLeukemiaStage:            "early",
		FieldPriorTreatmentHistory:    "none",
		FieldIsResponding:             "1",
		FieldPatientAge:               "",
		FieldPatientID:                fmt.Sprintf("%d", id),
		FieldANCMean:                  "",
		FieldPLTMean:                  "",
		FieldANCStability:             "",
		FieldPLTStability:             "",
		FieldWBCCount:                 "",
		FieldANC:                      "",
		FieldPlateletCount:            "",
		FieldHemoglobin:               "",
		FieldDiseaseStage:             "",
		FieldSurvivalProbability:      "",
		FieldPatientConsent:           "1",
		FieldFinancialBurden:          "",
		FieldComplianceWithGuidelines: "1",
		FieldOvertreatmentRisk:        "",
	}
}

func (f TreatmentForm) Clone() TreatmentForm {
	out := make(TreatmentForm, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Missing returns the required fields that are empty, in declaration order.
func (f TreatmentForm) Missing() []string {
	var missing []string
	for _, field := range RequiredFields {
		if f[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Validate fails with a single message naming every missing required field.
func (f TreatmentForm) Validate() error {
	missing := f.Missing()
	if len(missing) == 0 {
		return nil
	}
	labels := make([]string, len(missing))
	for i, field := range missing {
		labels[i] = FieldLabel(field)
	}
	return apperrors.NewValidation("Please fill in all required fields: "+strings.Join(labels, ", "), missing...)
}

func FieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// NormalizeFinancialBurden maps a raw treatment cost onto [0,1] against
// threshold, formatted with two decimals.
func NormalizeFinancialBurden(cost, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultFinancialBurdenThreshold
	}
	return fmt.Sprintf("%.2f", clamp01(cost/threshold))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
