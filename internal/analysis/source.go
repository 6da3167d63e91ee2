package analysis

import (
	"fmt"
	"math/rand"
	"sync"
)

// FieldSource supplies the overtreatment risk and guideline compliance
// values the form does not collect.
type FieldSource interface {
	Fields() (overtreatmentRisk, compliance string)
}

// RandomFieldSource draws overtreatment risk uniformly from [0,1) and
// compliance as a fair coin.
type RandomFieldSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomFieldSource(seed int64) *RandomFieldSource {
	return &RandomFieldSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomFieldSource) Fields() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	risk := fmt.Sprintf("%.2f", s.rng.Float64())
	compliance := "1"
	if s.rng.Float64() < 0.5 {
		compliance = "0"
	}
	return risk, compliance
}

// FixedFieldSource always returns the configured values.
type FixedFieldSource struct {
	OvertreatmentRisk string
	Compliance        string
}

func (s FixedFieldSource) Fields() (string, string) {
	return s.OvertreatmentRisk, s.Compliance
}

// Jitter perturbs a probability for display.
type Jitter interface {
	Variation() float64
}

// UniformJitter yields variations uniformly distributed in [-Amplitude, +Amplitude).
type UniformJitter struct {
	Amplitude float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewUniformJitter(amplitude float64, seed int64) *UniformJitter {
	return &UniformJitter{Amplitude: amplitude, rng: rand.New(rand.NewSource(seed))}
}

func (j *UniformJitter) Variation() float64 {
	if j.Amplitude == 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rng.Float64()*2*j.Amplitude - j.Amplitude
}

// ApplyJitter shifts p by variation and clamps the result into [0,1].
func ApplyJitter(p, variation float64) float64 {
	return clamp01(p + variation)
}
