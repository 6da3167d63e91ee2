package report

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/consent"
	"leukemia-care-portal/internal/dashboard"
	"leukemia-care-portal/internal/platform/apperrors"
)

const MsgInvalidPIN = "Invalid password. Please try again."

type Telegram interface {
	Enabled() bool
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

type File struct {
	Name string
	Data []byte
}

type Service interface {
	// Authorize checks the download PIN.
	Authorize(pin string) error
	Download(ctx context.Context, plan *Plan) (*File, error)
	// ConsentGiven pushes the report to the doctor's chat.
	ConsentGiven(ctx context.Context, rec consent.Record) error
}

type Config struct {
	PIN          string
	FontPath     string
	DoctorChatID int64
}

type service struct {
	cfg    Config
	src    dashboard.Source
	tg     Telegram
	logger zerolog.Logger
	now    func() time.Time
}

// NewService builds patient reports from src. tg may be nil, in which case
// consent notifications are dropped.
func NewService(cfg Config, src dashboard.Source, tg Telegram, logger zerolog.Logger) Service {
	return &service{
		cfg:    cfg,
		src:    src,
		tg:     tg,
		logger: logger.With().Str("component", "report").Logger(),
		now:    time.Now,
	}
}

func (s *service) Authorize(pin string) error {
	if s.cfg.PIN == "" || subtle.ConstantTimeCompare([]byte(pin), []byte(s.cfg.PIN)) != 1 {
		return apperrors.NewInvalidCredentials(MsgInvalidPIN)
	}
	return nil
}

func (s *service) Download(ctx context.Context, plan *Plan) (*File, error) {
	return s.build(ctx, plan)
}

func (s *service) ConsentGiven(ctx context.Context, rec consent.Record) error {
	if s.tg == nil || !s.tg.Enabled() || s.cfg.DoctorChatID == 0 {
		s.logger.Debug().Str("form_id", rec.FormID).Msg("telegram disabled, report not sent")
		return nil
	}

	var plan *Plan
	if t, ok := consent.FindTreatment(rec.Treatment); ok {
		plan = &Plan{Treatment: t, ConsentedAt: rec.RecordedAt}
	}
	f, err := s.build(ctx, plan)
	if err != nil {
		return err
	}

	s.logger.Info().Str("form_id", rec.FormID).Int64("chat_id", s.cfg.DoctorChatID).Msg("sending patient report")
	if err := s.tg.SendDocument(ctx, s.cfg.DoctorChatID, f.Data, f.Name); err != nil {
		return apperrors.NewNetwork("failed to send patient report", err)
	}
	return nil
}

func (s *service) build(ctx context.Context, plan *Plan) (*File, error) {
	view, err := s.src.Patient(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if plan != nil && plan.ConsentedAt.IsZero() {
		p := *plan
		p.ConsentedAt = now
		plan = &p
	}
	doc := Document{Patient: view.Patient, Progress: view.Progress, Plan: plan, GeneratedAt: now}

	fontPath, err := resolveFont(s.cfg.FontPath)
	if err != nil {
		return nil, apperrors.NewInternal("report font unavailable", err)
	}
	data, pages, err := renderPDF(fontPath, doc)
	if err != nil {
		s.logger.Error().Err(err).Str("font", fontPath).Msg("failed to render report")
		return nil, apperrors.NewInternal("failed to generate report", err)
	}

	s.logger.Debug().Int("pages", pages).Int("bytes", len(data)).Msg("report generated")
	return &File{Name: doc.FileName(), Data: data}, nil
}
