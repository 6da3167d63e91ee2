package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"leukemia-care-portal/internal/predict"
)

type Constraint struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Threshold string `json:"threshold"`
	Met       bool   `json:"met"`
}

type EthicalAnalysis struct {
	Constraints []Constraint `json:"constraints"`
	Met         []Constraint `json:"met"`
	Unmet       []Constraint `json:"unmet"`
	Summary     string       `json:"summary"`
}

type EffectivenessAnalysis struct {
	Probability    float64 `json:"probability"`
	IsEffective    bool    `json:"is_effective"`
	Level          string  `json:"level"`
	CareSuggestion string  `json:"care_suggestion"`
	Summary        string  `json:"summary"`
}

const (
	LevelHighly      = "highly effective"
	LevelModerately  = "moderately effective"
	LevelMarginally  = "marginally effective"
	LevelIneffective = "potentially ineffective"

	CarePalliative = "Recommendation: Switch to palliative care due to low treatment effectiveness and poor patient response."
	CareCurative   = "Recommendation: Continue with curative treatment as recommended by Treatment Optimization."
)

// AnalyzeEthics checks the form against the four narrative constraints.
// Values that do not parse count as unmet.
func AnalyzeEthics(form TreatmentForm) EthicalAnalysis {
	constraints := []Constraint{
		atMost("Financial Burden", form[FieldFinancialBurden], 0.7),
		equals("Patient Consent", form[FieldPatientConsent], "1"),
		equals("Guidelines Compliance", form[FieldComplianceWithGuidelines], "1"),
		atMost("Overtreatment Risk", form[FieldOvertreatmentRisk], 0.6),
	}

	a := EthicalAnalysis{Constraints: constraints}
	for _, c := range constraints {
		if c.Met {
			a.Met = append(a.Met, c)
		} else {
			a.Unmet = append(a.Unmet, c)
		}
	}
	a.Summary = fmt.Sprintf("%d of %d ethical constraints met.", len(a.Met), len(constraints))
	return a
}

func atMost(name, value string, threshold float64) Constraint {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return Constraint{
		Name:      name,
		Value:     value,
		Threshold: strconv.FormatFloat(threshold, 'f', -1, 64),
		Met:       err == nil && v <= threshold,
	}
}

func equals(name, value, want string) Constraint {
	return Constraint{Name: name, Value: value, Threshold: want, Met: value == want}
}

func AnalyzeEffectiveness(eff predict.EffectivenessResponse, form TreatmentForm) EffectivenessAnalysis {
	p := eff.AvgProbability

	level := LevelIneffective
	switch {
	case p >= 0.8:
		level = LevelHighly
	case p >= 0.6:
		level = LevelModerately
	case p >= 0.4:
		level = LevelMarginally
	}

	care := CareCurative
	if p < 0.4 && form[FieldIsResponding] != "1" {
		care = CarePalliative
	}

	return EffectivenessAnalysis{
		Probability:    p,
		IsEffective:    eff.LikelyEffective,
		Level:          level,
		CareSuggestion: care,
		Summary:        fmt.Sprintf("Treatment shows %s (%.1f%% probability of success)", level, p*100),
	}
}

// Recommend folds the ethical verdict and effectiveness result into the
// narrative recommendation.
func Recommend(verdict string, eff predict.EffectivenessResponse, form TreatmentForm) string {
	ethical := AnalyzeEthics(form)
	effectiveness := AnalyzeEffectiveness(eff, form)

	switch {
	case verdict == predict.VerdictEthical && eff.LikelyEffective:
		return "Recommended: This treatment plan is both ethical and likely to be effective." +
			"\n\nEthical Analysis: " + ethical.Summary +
			"\n \n\n Effectiveness Analysis: " + effectiveness.Summary

	case verdict == predict.VerdictEthical:
		return "Caution: While this treatment plan is ethical, it may not be effective." +
			"\n\nEthical Analysis: " + ethical.Summary +
			"\nAll ethical constraints are met." +
			"\n\nEffectiveness Analysis: " + effectiveness.Summary +
			"\nConsider alternative treatments with higher effectiveness."

	case verdict == predict.VerdictNonEthical && eff.LikelyEffective:
		details := make([]string, len(ethical.Unmet))
		for i, c := range ethical.Unmet {
			details[i] = fmt.Sprintf("%s: Current value %s exceeds threshold %s", c.Name, c.Value, c.Threshold)
		}
		return "Not Recommended: Although this treatment may be effective, it raises ethical concerns that must be addressed." +
			"\n\nEthical Analysis: " + ethical.Summary +
			"\nUnmet Constraints:\n" + strings.Join(details, "\n") +
			"\n\nEffectiveness Analysis: " + effectiveness.Summary

	default:
		names := make([]string, len(ethical.Unmet))
		for i, c := range ethical.Unmet {
			names[i] = c.Name
		}
		return "Not Recommended: This treatment plan raises both ethical concerns and effectiveness issues." +
			"\n\nEthical Analysis: " + ethical.Summary +
			"\nUnmet Constraints:\n" + strings.Join(names, ", ") +
			"\n\nEffectiveness Analysis: " + effectiveness.Summary
	}
}
