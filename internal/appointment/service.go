package appointment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/platform/session"
	"leukemia-care-portal/internal/platform/validate"
	"leukemia-care-portal/internal/predict"
)

// Notifier tells the doctor about new bookings.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Service interface {
	List(ctx context.Context, viewer string) ([]Appointment, error)
	Act(ctx context.Context, viewer, id string, req ActionRequest) (Appointment, error)
	Book(ctx context.Context, viewer string, b Booking) (*BookingResult, error)
	Booked(ctx context.Context, viewer string) ([]Appointment, error)
}

type Config struct {
	// CacheTTL keeps the upstream list for this long. Zero disables caching.
	CacheTTL   time.Duration
	SessionTTL time.Duration
}

const upstreamKey = "appointments:upstream"

type service struct {
	cfg      Config
	client   predict.Client
	store    session.Store
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(cfg Config, client predict.Client, store session.Store, notifier Notifier, logger zerolog.Logger) Service {
	return &service{
		cfg:      cfg,
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "appointment").Logger(),
		now:      time.Now,
	}
}

func overlayKey(viewer string) string { return "appointments:overlay:" + viewer }
func bookedKey(viewer string) string  { return "appointments:booked:" + viewer }

func (s *service) upstream(ctx context.Context) ([]Appointment, error) {
	if s.cfg.CacheTTL > 0 {
		var cached []Appointment
		ok, err := session.GetJSON(ctx, s.store, upstreamKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("appointment cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	records, err := s.client.GetAppointments(ctx)
	if err != nil {
		return nil, apperrors.NewNetwork(MsgFetchFailed, err)
	}
	out := make([]Appointment, len(records))
	for i, rec := range records {
		out[i] = FromRecord(rec)
	}

	if s.cfg.CacheTTL > 0 {
		if err := session.SetJSON(ctx, s.store, upstreamKey, out, s.cfg.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("appointment cache write failed")
		}
	}
	return out, nil
}

func (s *service) overlays(ctx context.Context, viewer string) (map[string]overlay, error) {
	m := map[string]overlay{}
	if _, err := session.GetJSON(ctx, s.store, overlayKey(viewer), &m); err != nil {
		return nil, apperrors.NewInternal("failed to load appointment decisions", err)
	}
	return m, nil
}

// List returns the upstream appointments with this viewer's local decisions
// applied.
func (s *service) List(ctx context.Context, viewer string) ([]Appointment, error) {
	list, err := s.upstream(ctx)
	if err != nil {
		return nil, err
	}
	ov, err := s.overlays(ctx, viewer)
	if err != nil {
		return nil, err
	}
	for i, a := range list {
		if o, ok := ov[a.ID]; ok {
			list[i] = o.apply(a)
		}
	}
	return list, nil
}

func (s *service) Act(ctx context.Context, viewer, id string, req ActionRequest) (Appointment, error) {
	var o overlay
	switch req.Action {
	case ActionApprove:
		o.Status = StatusApproved
	case ActionDecline:
		o.Status = StatusDeclined
	case ActionRefer:
		if !isReferralDoctor(req.ReferTo) {
			return Appointment{}, apperrors.NewValidation("Please select a doctor to refer to.", "refer_to")
		}
		o.Status = ReferredStatus(req.ReferTo)
		o.ReferredTo = req.ReferTo
	default:
		return Appointment{}, apperrors.NewValidation(fmt.Sprintf("unknown action %q", req.Action), "action")
	}
	o.DoctorMessage = req.Message

	list, err := s.List(ctx, viewer)
	if err != nil {
		return Appointment{}, err
	}
	var target *Appointment
	for i := range list {
		if list[i].ID == id {
			target = &list[i]
			break
		}
	}
	if target == nil {
		return Appointment{}, apperrors.NewNotFound("appointment not found")
	}
	if target.Status != StatusPending {
		return Appointment{}, apperrors.NewConflict(fmt.Sprintf("appointment is already %s", target.Status))
	}

	ov, err := s.overlays(ctx, viewer)
	if err != nil {
		return Appointment{}, err
	}
	ov[id] = o
	if err := session.SetJSON(ctx, s.store, overlayKey(viewer), ov, s.cfg.SessionTTL); err != nil {
		return Appointment{}, apperrors.NewInternal("failed to save appointment decision", err)
	}

	s.logger.Info().Str("appointment_id", id).Str("status", o.Status).Msg("appointment updated")
	return o.apply(*target), nil
}

func isReferralDoctor(name string) bool {
	for _, d := range ReferralDoctors {
		if d == name {
			return true
		}
	}
	return false
}

func (s *service) Book(ctx context.Context, viewer string, b Booking) (*BookingResult, error) {
	if err := validate.Struct(b, MsgMissingBookingFields); err != nil {
		return nil, err
	}
	if b.Type == "" {
		b.Type = DefaultBookingType
	}

	resp, err := s.client.SubmitAppointment(ctx, predict.AppointmentSubmission{
		ID:          strconv.FormatInt(s.now().UnixMilli(), 10),
		PatientName: b.PatientName,
		Date:        b.Date,
		Time:        b.Time,
		Type:        b.Type,
		Message:     b.Message,
	})
	if err != nil {
		return nil, apperrors.NewNetwork(MsgBookingFailed, err)
	}

	confirmation := resp.Confirmation()
	a := Appointment{
		ID:          confirmation,
		PatientName: b.PatientName,
		Date:        b.Date,
		Time:        b.Time,
		Type:        b.Type,
		Status:      StatusPending,
		Message:     b.Message,
	}

	booked, err := s.Booked(ctx, viewer)
	if err != nil {
		return nil, err
	}
	booked = append(booked, a)
	if err := session.SetJSON(ctx, s.store, bookedKey(viewer), booked, s.cfg.SessionTTL); err != nil {
		return nil, apperrors.NewInternal("failed to save booking", err)
	}

	if s.notifier != nil {
		text := fmt.Sprintf("New %s appointment request from %s on %s at %s.\nConfirmation: %s\n\n%s",
			b.Type, b.PatientName, b.Date, b.Time, confirmation, b.Message)
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Warn().Err(err).Str("confirmation_id", confirmation).Msg("booking notification failed")
		}
	}

	s.logger.Info().Str("confirmation_id", confirmation).Msg("appointment booked")
	return &BookingResult{
		ConfirmationID: confirmation,
		Message:        "Appointment booked successfully! Confirmation: " + confirmation,
		Appointment:    a,
	}, nil
}

func (s *service) Booked(ctx context.Context, viewer string) ([]Appointment, error) {
	var booked []Appointment
	if _, err := session.GetJSON(ctx, s.store, bookedKey(viewer), &booked); err != nil {
		return nil, apperrors.NewInternal("failed to load bookings", err)
	}
	if booked == nil {
		booked = []Appointment{}
	}
	return booked, nil
}
