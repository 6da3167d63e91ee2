package analysis

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"leukemia-care-portal/internal/predict"
)

type StageName string

const (
	StageEthical       StageName = "ethical"
	StageEffectiveness StageName = "effectiveness"
	StageDQN           StageName = "dqn"
	StageImage         StageName = "image"
)

// Stage is one prediction call. Needs lists the stages whose output it
// reads; a stage only ever writes its own output on the run.
type Stage struct {
	Name  StageName
	Needs []StageName
	Skip  func(r *run) bool
	Run   func(ctx context.Context, r *run) error
}

// run carries one analysis through the pipeline.
type run struct {
	form      TreatmentForm
	image     []byte
	imageName string

	ethical       *predict.EthicalResponse
	effectiveness *predict.EffectivenessResponse
	dqn           *predict.DQNResponse
	imageResult   *predict.ImageResponse
}

// survivalProbability is the DQN input: the effectiveness model's average
// when it produced one, else whatever the doctor entered.
func (r *run) survivalProbability() string {
	if r.effectiveness != nil && r.effectiveness.AvgProbability != 0 {
		return strconv.FormatFloat(r.effectiveness.AvgProbability, 'f', -1, 64)
	}
	return r.form[FieldSurvivalProbability]
}

func (s *service) stages() []Stage {
	return []Stage{
		{Name: StageEthical, Run: s.runEthical},
		{Name: StageEffectiveness, Run: s.runEffectiveness},
		{Name: StageDQN, Needs: []StageName{StageEffectiveness}, Run: s.runDQN},
		{
			Name: StageImage,
			Skip: func(r *run) bool { return len(r.image) == 0 },
			Run:  s.runImage,
		},
	}
}

// Pipeline executes stages in declaration order, or in dependency waves
// when concurrent is set. The first failure cancels the rest.
type Pipeline struct {
	stages     []Stage
	concurrent bool
}

func NewPipeline(stages []Stage, concurrent bool) (*Pipeline, error) {
	seen := make(map[StageName]bool, len(stages))
	for _, st := range stages {
		for _, need := range st.Needs {
			if !seen[need] {
				return nil, fmt.Errorf("stage %s needs %s, which is not declared before it", st.Name, need)
			}
		}
		seen[st.Name] = true
	}
	return &Pipeline{stages: stages, concurrent: concurrent}, nil
}

func (p *Pipeline) Execute(ctx context.Context, r *run) error {
	if !p.concurrent {
		for _, st := range p.stages {
			if st.Skip != nil && st.Skip(r) {
				continue
			}
			if err := st.Run(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}

	for _, wave := range p.waves() {
		g, gctx := errgroup.WithContext(ctx)
		for _, st := range wave {
			if st.Skip != nil && st.Skip(r) {
				continue
			}
			st := st
			g.Go(func() error {
				return st.Run(gctx, r)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// waves groups stages so every stage runs after everything it needs.
func (p *Pipeline) waves() [][]Stage {
	level := make(map[StageName]int, len(p.stages))
	var out [][]Stage
	for _, st := range p.stages {
		l := 0
		for _, need := range st.Needs {
			if level[need]+1 > l {
				l = level[need] + 1
			}
		}
		level[st.Name] = l
		for len(out) <= l {
			out = append(out, nil)
		}
		out[l] = append(out[l], st)
	}
	return out
}

func (s *service) runEthical(ctx context.Context, r *run) error {
	f := r.form
	req := predict.EthicalRequest{
		TreatmentType:            f[FieldTreatmentType],
		LeukemiaStage:            f[FieldLeukemiaStage],
		PriorTreatmentHistory:    f[FieldPriorTreatmentHistory],
		Dosage:                   f[FieldDosage],
		PatientAge:               f[FieldPatientAge],
		PatientConsent:           f[FieldPatientConsent],
		FinancialBurden:          f[FieldFinancialBurden],
		ComplianceWithGuidelines: f[FieldComplianceWithGuidelines],
		OvertreatmentRisk:        f[FieldOvertreatmentRisk],
	}
	resp, err := s.client.PredictEthical(ctx, req)
	if err != nil {
		return err
	}
	r.ethical = resp

	withType := map[string]interface{}{"prediction_type": "ethical"}
	for k, v := range f {
		withType[k] = v
	}
	s.logForm(ctx, withType)

	s.logForm(ctx, map[string]interface{}{
		"data_type":                  "ethical_analysis",
		"treatment_type":             req.TreatmentType,
		"leukemia_stage":             req.LeukemiaStage,
		"prior_treatment_history":    req.PriorTreatmentHistory,
		"dosage":                     req.Dosage,
		"patient_age":                req.PatientAge,
		"patient_consent":            req.PatientConsent,
		"financial_burden":           req.FinancialBurden,
		"compliance_with_guidelines": req.ComplianceWithGuidelines,
		"overtreatment_risk":         req.OvertreatmentRisk,
	})
	return nil
}

func (s *service) runEffectiveness(ctx context.Context, r *run) error {
	f := r.form
	req := predict.EffectivenessRequest{
		ANCMean:      f[FieldANCMean],
		PLTMean:      f[FieldPLTMean],
		ANCStability: f[FieldANCStability],
		PLTStability: f[FieldPLTStability],
	}
	resp, err := s.client.PredictEffectiveness(ctx, req)
	if err != nil {
		return err
	}
	r.effectiveness = resp

	s.logForm(ctx, map[string]interface{}{
		"data_type":     "effectiveness_analysis",
		"ANC_mean":      req.ANCMean,
		"PLT_mean":      req.PLTMean,
		"anc_stability": req.ANCStability,
		"plt_stability": req.PLTStability,
	})
	return nil
}

func (s *service) runDQN(ctx context.Context, r *run) error {
	f := r.form
	req := predict.DQNRequest{
		WBCCount:            f[FieldWBCCount],
		ANC:                 f[FieldANC],
		PlateletCount:       f[FieldPlateletCount],
		Hemoglobin:          f[FieldHemoglobin],
		DiseaseStage:        f[FieldDiseaseStage],
		SurvivalProbability: r.survivalProbability(),
	}
	resp, err := s.client.PredictTreatment(ctx, req)
	if err != nil {
		return err
	}
	r.dqn = resp

	s.logForm(ctx, map[string]interface{}{
		"data_type":            "dqn_analysis",
		"WBC_Count":            req.WBCCount,
		"ANC":                  req.ANC,
		"Platelet_Count":       req.PlateletCount,
		"Hemoglobin":           req.Hemoglobin,
		"Disease_Stage":        req.DiseaseStage,
		"Survival_Probability": req.SurvivalProbability,
	})
	return nil
}

func (s *service) runImage(ctx context.Context, r *run) error {
	resp, err := s.client.PredictImage(ctx, r.image, r.imageName)
	if err != nil {
		return err
	}
	r.imageResult = resp

	s.logForm(ctx, map[string]interface{}{
		"data_type":     "image_analysis",
		"prediction":    resp.Prediction,
		"confidence":    resp.Confidence,
		"probabilities": resp.Probabilities,
	})
	return nil
}
