package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	PredictionAPIURL  string        `mapstructure:"PREDICTION_API_URL"`
	PredictionTimeout time.Duration `mapstructure:"PREDICTION_TIMEOUT"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	DoctorChatID     int64  `mapstructure:"DOCTOR_CHAT_ID"`
	ReportPIN        string `mapstructure:"REPORT_PIN"`
	ReportFontPath   string `mapstructure:"REPORT_FONT_PATH"`

	AnalysisSynthesizeFields  bool    `mapstructure:"ANALYSIS_SYNTHESIZE_FIELDS"`
	AnalysisOvertreatmentRisk string  `mapstructure:"ANALYSIS_OVERTREATMENT_RISK"`
	AnalysisCompliance        string  `mapstructure:"ANALYSIS_COMPLIANCE"`
	AnalysisJitter            float64 `mapstructure:"ANALYSIS_JITTER"`
	AnalysisConcurrent        bool    `mapstructure:"ANALYSIS_CONCURRENT"`
	FinancialBurdenThreshold  float64 `mapstructure:"FINANCIAL_BURDEN_THRESHOLD"`

	ConsentMaxBytes  int64         `mapstructure:"CONSENT_MAX_BYTES"`
	ConsentTimeslice time.Duration `mapstructure:"CONSENT_TIMESLICE"`
	ConsentIdleTTL   time.Duration `mapstructure:"CONSENT_IDLE_TTL"`

	DoctorEmail     string `mapstructure:"DOCTOR_EMAIL"`
	DoctorPassword  string `mapstructure:"DOCTOR_PASSWORD"`
	PatientEmail    string `mapstructure:"PATIENT_EMAIL"`
	PatientPassword string `mapstructure:"PATIENT_PASSWORD"`
	FamilyEmail     string `mapstructure:"FAMILY_EMAIL"`
	FamilyPassword  string `mapstructure:"FAMILY_PASSWORD"`
}

var keys = []string{
	"PORT", "ENV", "PREDICTION_API_URL", "PREDICTION_TIMEOUT", "REDIS_URL",
	"JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS", "TELEGRAM_BOT_TOKEN",
	"DOCTOR_CHAT_ID", "REPORT_PIN", "REPORT_FONT_PATH",
	"ANALYSIS_SYNTHESIZE_FIELDS", "ANALYSIS_OVERTREATMENT_RISK",
	"ANALYSIS_COMPLIANCE", "ANALYSIS_JITTER", "ANALYSIS_CONCURRENT",
	"FINANCIAL_BURDEN_THRESHOLD", "CONSENT_MAX_BYTES", "CONSENT_TIMESLICE",
	"CONSENT_IDLE_TTL", "DOCTOR_EMAIL", "DOCTOR_PASSWORD", "PATIENT_EMAIL",
	"PATIENT_PASSWORD", "FAMILY_EMAIL", "FAMILY_PASSWORD",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("PREDICTION_API_URL", "http://localhost:5000")
	v.SetDefault("PREDICTION_TIMEOUT", "30s")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("REPORT_PIN", "123456")
	v.SetDefault("ANALYSIS_SYNTHESIZE_FIELDS", true)
	v.SetDefault("ANALYSIS_JITTER", 0.1)
	v.SetDefault("ANALYSIS_CONCURRENT", false)
	v.SetDefault("FINANCIAL_BURDEN_THRESHOLD", 100000)
	v.SetDefault("CONSENT_MAX_BYTES", 100<<20)
	v.SetDefault("CONSENT_TIMESLICE", "1s")
	v.SetDefault("CONSENT_IDLE_TTL", "2h")
	v.SetDefault("DOCTOR_EMAIL", "doctor@medicare.com")
	v.SetDefault("DOCTOR_PASSWORD", "Doctor123!")
	v.SetDefault("PATIENT_EMAIL", "patient@medicare.com")
	v.SetDefault("PATIENT_PASSWORD", "Patient123!")
	v.SetDefault("FAMILY_EMAIL", "family@medicare.com")
	v.SetDefault("FAMILY_PASSWORD", "Family123!")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-only-secret"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the portal cannot run with.
func (c *Config) Validate() error {
	if c.PredictionAPIURL == "" {
		return fmt.Errorf("PREDICTION_API_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.AnalysisJitter < 0 || c.AnalysisJitter > 1 {
		return fmt.Errorf("ANALYSIS_JITTER must be within [0,1], got %v", c.AnalysisJitter)
	}
	if c.FinancialBurdenThreshold <= 0 {
		return fmt.Errorf("FINANCIAL_BURDEN_THRESHOLD must be positive, got %v", c.FinancialBurdenThreshold)
	}
	if !c.AnalysisSynthesizeFields && (c.AnalysisOvertreatmentRisk == "" || c.AnalysisCompliance == "") {
		return fmt.Errorf("ANALYSIS_OVERTREATMENT_RISK and ANALYSIS_COMPLIANCE are required when ANALYSIS_SYNTHESIZE_FIELDS is false")
	}
	if c.ConsentTimeslice <= 0 {
		return fmt.Errorf("CONSENT_TIMESLICE must be positive, got %s", c.ConsentTimeslice)
	}
	if c.ConsentMaxBytes <= 0 {
		return fmt.Errorf("CONSENT_MAX_BYTES must be positive, got %d", c.ConsentMaxBytes)
	}
	if len(c.ReportPIN) != 6 {
		return fmt.Errorf("REPORT_PIN must be 6 digits")
	}
	return nil
}
