package analysis

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/predict"
)

func completeForm() TreatmentForm {
	f := DefaultForm(rand.New(rand.NewSource(1)))
	f[FieldPatientAge] = "54"
	f[FieldDosage] = "200"
	f[FieldANCMean] = "2.1"
	f[FieldPLTMean] = "180"
	f[FieldANCStability] = "0.8"
	f[FieldPLTStability] = "0.7"
	f[FieldFinancialBurden] = "0.40"
	f[FieldOvertreatmentRisk] = "0.30"
	f[FieldWBCCount] = "6.2"
	f[FieldANC] = "2.0"
	f[FieldPlateletCount] = "170"
	f[FieldHemoglobin] = "12.5"
	f[FieldDiseaseStage] = "2"
	f[FieldSurvivalProbability] = "0.55"
	return f
}

func TestRecommend_DecisionTable(t *testing.T) {
	unmet := completeForm()
	unmet[FieldFinancialBurden] = "0.90"
	unmet[FieldPatientConsent] = "0"

	tests := []struct {
		name      string
		verdict   string
		effective bool
		prefix    string
		contains  []string
	}{
		{
			name:      "ethical and effective",
			verdict:   predict.VerdictEthical,
			effective: true,
			prefix:    "Recommended:",
			contains:  []string{"both ethical and likely to be effective"},
		},
		{
			name:      "ethical but ineffective",
			verdict:   predict.VerdictEthical,
			effective: false,
			prefix:    "Caution:",
			contains:  []string{"Consider alternative treatments"},
		},
		{
			name:      "unethical but effective",
			verdict:   predict.VerdictNonEthical,
			effective: true,
			prefix:    "Not Recommended:",
			contains: []string{
				"Financial Burden: Current value 0.90 exceeds threshold 0.7",
				"Patient Consent: Current value 0 exceeds threshold 1",
			},
		},
		{
			name:      "unethical and ineffective",
			verdict:   predict.VerdictNonEthical,
			effective: false,
			prefix:    "Not Recommended:",
			contains:  []string{"ethical concerns and effectiveness issues", "Financial Burden, Patient Consent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := predict.EffectivenessResponse{AvgProbability: 0.3, LikelyEffective: tt.effective}
			got := Recommend(tt.verdict, eff, unmet)
			assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.Contains(t, got, "2 of 4 ethical constraints met.")
		})
	}
}

func TestAnalyzeEthics(t *testing.T) {
	f := completeForm()
	a := AnalyzeEthics(f)
	assert.Len(t, a.Met, 4)
	assert.Empty(t, a.Unmet)
	assert.Equal(t, "4 of 4 ethical constraints met.", a.Summary)

	f[FieldOvertreatmentRisk] = "0.61"
	f[FieldFinancialBurden] = "not a number"
	a = AnalyzeEthics(f)
	require.Len(t, a.Unmet, 2)
	assert.Equal(t, "Financial Burden", a.Unmet[0].Name)
	assert.Equal(t, "Overtreatment Risk", a.Unmet[1].Name)
}

func TestAnalyzeEffectiveness(t *testing.T) {
	tests := []struct {
		p          float64
		responding string
		level      string
		care       string
	}{
		{0.85, "1", LevelHighly, CareCurative},
		{0.8, "0", LevelHighly, CareCurative},
		{0.6, "1", LevelModerately, CareCurative},
		{0.45, "0", LevelMarginally, CareCurative},
		{0.2, "1", LevelIneffective, CareCurative},
		{0.2, "0", LevelIneffective, CarePalliative},
	}
	for _, tt := range tests {
		f := completeForm()
		f[FieldIsResponding] = tt.responding
		got := AnalyzeEffectiveness(predict.EffectivenessResponse{AvgProbability: tt.p}, f)
		assert.Equal(t, tt.level, got.Level, "p=%v", tt.p)
		assert.Equal(t, tt.care, got.CareSuggestion, "p=%v responding=%s", tt.p, tt.responding)
	}

	got := AnalyzeEffectiveness(predict.EffectivenessResponse{AvgProbability: 0.734}, completeForm())
	assert.Equal(t, "Treatment shows moderately effective (73.4% probability of success)", got.Summary)
}

func TestValidate_ListsMissingFields(t *testing.T) {
	f := completeForm()
	f[FieldPatientAge] = ""
	f[FieldANCMean] = ""

	err := f.Validate()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.TypeValidation, appErr.Type)
	assert.Equal(t, "Please fill in all required fields: patient age, ANC mean", appErr.Message)
	assert.Equal(t, []string{FieldPatientAge, FieldANCMean}, appErr.Fields)

	assert.NoError(t, completeForm().Validate())
}

func TestNormalizeFinancialBurden(t *testing.T) {
	assert.Equal(t, "1.00", NormalizeFinancialBurden(150000, 100000))
	assert.Equal(t, "0.50", NormalizeFinancialBurden(50000, 100000))
	assert.Equal(t, "0.00", NormalizeFinancialBurden(-10, 100000))
	assert.Equal(t, "0.25", NormalizeFinancialBurden(25000, 0))
}

func TestApplyJitter_Clamps(t *testing.T) {
	assert.Equal(t, 1.0, ApplyJitter(0.95, 0.1))
	assert.Equal(t, 0.0, ApplyJitter(0.05, -0.1))
	assert.InDelta(t, 0.1, ApplyJitter(0.0, 0.1), 1e-9)

	j := NewUniformJitter(0.1, 7)
	for i := 0; i < 1000; i++ {
		v := j.Variation()
		assert.True(t, v >= -0.1 && v < 0.1, "variation %v out of range", v)
		p := ApplyJitter(0.97, v)
		assert.True(t, p >= 0 && p <= 1)
	}

	assert.Zero(t, NewUniformJitter(0, 1).Variation())
}

func TestRandomFieldSource(t *testing.T) {
	src := NewRandomFieldSource(42)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		risk, compliance := src.Fields()
		assert.Len(t, risk, 4)
		assert.Contains(t, []string{"0", "1"}, compliance)
		seen[compliance] = true
	}
	assert.Len(t, seen, 2)
}

func TestDefaultForm(t *testing.T) {
	f := DefaultForm(rand.New(rand.NewSource(3)))
	assert.Equal(t, "chemotherapy", f[FieldTreatmentType])
	assert.Equal(t, "early", f[FieldLeukemiaStage])
	assert.Len(t, f[FieldPatientID], 6)
	assert.ElementsMatch(t, RequiredFields, f.Missing())
}
