package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/predict"
)

const (
	ResultEffective   = "Effective"
	ResultIneffective = "Ineffective"

	MsgSelectImage = "Please select an image first"
)

type Request struct {
	Form          TreatmentForm
	FinancialCost *float64
	Image         []byte
	ImageName     string
}

type EthicalResult struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}

type EffectivenessResult struct {
	Result      string `json:"result"`
	Probability string `json:"probability"`
}

type Result struct {
	Ethical           EthicalResult          `json:"ethical"`
	Effectiveness     EffectivenessResult    `json:"effectiveness"`
	Recommendation    string                 `json:"recommendation"`
	CareSuggestion    string                 `json:"careSuggestion"`
	DQNRecommendation string                 `json:"dqnRecommendation"`
	ImageAnalysis     *predict.ImageResponse `json:"imageAnalysis"`
	Form              TreatmentForm          `json:"form"`
}

type HighestProbability struct {
	Class string  `json:"class"`
	Value float64 `json:"value"`
}

type ImageResult struct {
	Prediction         string                 `json:"prediction"`
	Confidence         *float64               `json:"confidence"`
	Probabilities      map[string]float64     `json:"probabilities"`
	HighestProbability HighestProbability     `json:"highestProbability"`
	Raw                *predict.ImageResponse `json:"raw"`
}

type Service interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
	AnalyzeImage(ctx context.Context, image []byte, fileName string) (*ImageResult, error)
	NewForm() TreatmentForm
	FinancialBurden(cost float64) string
}

type Config struct {
	// Fields overwrites overtreatment risk and guideline compliance before
	// validation. Nil keeps whatever the form carries.
	Fields FieldSource

	// Jitter perturbs the displayed effectiveness probability. Nil disables it.
	Jitter Jitter

	Concurrent               bool
	FinancialBurdenThreshold float64
}

type service struct {
	cfg      Config
	client   predict.Client
	pipeline *Pipeline
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(cfg Config, client predict.Client, logger zerolog.Logger) (Service, error) {
	if cfg.FinancialBurdenThreshold <= 0 {
		cfg.FinancialBurdenThreshold = DefaultFinancialBurdenThreshold
	}
	s := &service{
		cfg:    cfg,
		client: client,
		logger: logger.With().Str("component", "analysis").Logger(),
		now:    time.Now,
	}
	p, err := NewPipeline(s.stages(), cfg.Concurrent)
	if err != nil {
		return nil, err
	}
	s.pipeline = p
	return s, nil
}

func (s *service) NewForm() TreatmentForm {
	return DefaultForm(nil)
}

func (s *service) FinancialBurden(cost float64) string {
	return NormalizeFinancialBurden(cost, s.cfg.FinancialBurdenThreshold)
}

// Analyze runs the whole pipeline. Any prediction failure discards every
// partial result.
func (s *service) Analyze(ctx context.Context, req Request) (*Result, error) {
	form := req.Form.Clone()
	if req.FinancialCost != nil {
		form[FieldFinancialBurden] = s.FinancialBurden(*req.FinancialCost)
	}
	if s.cfg.Fields != nil {
		form[FieldOvertreatmentRisk], form[FieldComplianceWithGuidelines] = s.cfg.Fields.Fields()
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}

	r := &run{form: form, image: req.Image, imageName: req.ImageName}
	if err := s.pipeline.Execute(ctx, r); err != nil {
		s.logger.Error().Err(err).Str("patient_id", form[FieldPatientID]).Msg("analysis aborted")
		return nil, err
	}

	eff := *r.effectiveness
	recommendation := Recommend(r.ethical.EthicalViolation, eff, form)

	s.logForm(ctx, map[string]interface{}{
		"data_type":                 "combined_analysis",
		"timestamp":                 s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"patient_id":                form[FieldPatientID],
		"patient_age":               form[FieldPatientAge],
		"treatment_type":            form[FieldTreatmentType],
		"ethical_result":            r.ethical.EthicalViolation,
		"ethical_confidence":        r.ethical.Confidence,
		"effectiveness_result":      effectivenessLabel(eff.LikelyEffective),
		"effectiveness_probability": eff.AvgProbability,
		"dqn_recommendation":        r.dqn.RecommendedTreatment,
		"final_recommendation":      recommendation,
	})

	var variation float64
	if s.cfg.Jitter != nil {
		variation = s.cfg.Jitter.Variation()
	}
	adjusted := ApplyJitter(eff.AvgProbability, variation)

	s.logger.Info().
		Str("patient_id", form[FieldPatientID]).
		Str("ethical", r.ethical.EthicalViolation).
		Bool("likely_effective", eff.LikelyEffective).
		Float64("probability", eff.AvgProbability).
		Float64("adjusted_probability", adjusted).
		Bool("image", r.imageResult != nil).
		Msg("analysis completed")

	return &Result{
		Ethical: EthicalResult{
			Result:     r.ethical.EthicalViolation,
			Confidence: r.ethical.Confidence,
		},
		Effectiveness: EffectivenessResult{
			Result:      effectivenessLabel(adjusted > 0.5),
			Probability: fmt.Sprintf("%.2f", adjusted),
		},
		Recommendation:    recommendation,
		CareSuggestion:    AnalyzeEffectiveness(eff, form).CareSuggestion,
		DQNRecommendation: r.dqn.RecommendedTreatment,
		ImageAnalysis:     r.imageResult,
		Form:              form,
	}, nil
}

func (s *service) AnalyzeImage(ctx context.Context, image []byte, fileName string) (*ImageResult, error) {
	if len(image) == 0 {
		return nil, apperrors.NewValidation(MsgSelectImage)
	}

	resp, err := s.client.PredictImage(ctx, image, fileName)
	if err != nil {
		return nil, err
	}

	s.logForm(ctx, map[string]interface{}{
		"prediction_type":   "image",
		"prediction_result": resp.Prediction,
		"confidence":        resp.Confidence,
	})

	return &ImageResult{
		Prediction:         resp.Prediction,
		Confidence:         resp.Confidence,
		Probabilities:      resp.Probabilities,
		HighestProbability: highest(resp.Probabilities),
		Raw:                resp,
	}, nil
}

// highest picks the most likely class; ties go to the alphabetically first.
func highest(probs map[string]float64) HighestProbability {
	var h HighestProbability
	for class, p := range probs {
		if p > h.Value || (p == h.Value && p > 0 && class < h.Class) {
			h = HighestProbability{Class: class, Value: p}
		}
	}
	return h
}

func effectivenessLabel(effective bool) string {
	if effective {
		return ResultEffective
	}
	return ResultIneffective
}

// logForm sends payload to the prediction service's log endpoint. Failures
// never reach the caller.
func (s *service) logForm(ctx context.Context, payload map[string]interface{}) {
	if err := s.client.SubmitForm(ctx, payload); err != nil {
		kind, _ := payload["data_type"].(string)
		if kind == "" {
			kind, _ = payload["prediction_type"].(string)
		}
		s.logger.Warn().Err(err).Str("payload", kind).Msg("submit-form logging failed")
	}
}
