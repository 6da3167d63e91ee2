package consent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/platform/apperrors"
)

// Listener is told about every consent once it has been given.
type Listener interface {
	ConsentGiven(ctx context.Context, rec Record) error
}

type Service interface {
	Create(ctx context.Context) (Status, error)
	Status(ctx context.Context, formID string) (Status, error)
	Start(ctx context.Context, formID string, mode Mode, decl Declaration) (Status, error)
	Respond(ctx context.Context, formID, requestID string, granted bool) (Status, error)
	PushChunk(ctx context.Context, formID string, data []byte) error
	Stop(ctx context.Context, formID string, mode Mode) (Status, error)
	Retake(ctx context.Context, formID string, mode Mode) (Status, error)
	SelectTreatment(ctx context.Context, formID, treatmentID string) (Status, error)
	Submit(ctx context.Context, formID string) (string, Status, error)
	TextConsent(ctx context.Context, formID string, confirmed bool) (string, Status, error)
	Close(ctx context.Context, formID string) error
	Blob(ctx context.Context, blobID string) (*Blob, []byte, error)
	Shutdown(ctx context.Context)
}

type ServiceConfig struct {
	Recorder Options
	IdleTTL  time.Duration
}

type form struct {
	recorder *Recorder
	devices  *IngestDevices
	ctx      context.Context
	cancel   context.CancelFunc
	lastSeen time.Time
}

type service struct {
	cfg      ServiceConfig
	blobs    BlobStore
	listener Listener
	logger   zerolog.Logger

	mu    sync.Mutex
	forms map[string]*form

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewService keeps one Recorder per open consent form. Forms idle for
// longer than cfg.IdleTTL are closed by a background sweeper that runs
// until Shutdown.
func NewService(cfg ServiceConfig, blobs BlobStore, listener Listener, logger zerolog.Logger) Service {
	s := &service{
		cfg:      cfg,
		blobs:    blobs,
		listener: listener,
		logger:   logger.With().Str("component", "consent").Logger(),
		forms:    make(map[string]*form),
		stop:     make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		s.wg.Add(1)
		go s.sweep(cfg.IdleTTL)
	}
	return s
}

func (s *service) Create(_ context.Context) (Status, error) {
	id := uuid.New().String()
	devices := NewIngestDevices()
	rec := NewRecorder(id, devices, devices, s.blobs, s.logger, s.cfg.Recorder)
	rec.OnConsent(s.notify)

	ctx, cancel := context.WithCancel(context.Background())
	f := &form{recorder: rec, devices: devices, ctx: ctx, cancel: cancel, lastSeen: time.Now()}

	s.mu.Lock()
	s.forms[id] = f
	s.mu.Unlock()

	s.logger.Info().Str("form_id", id).Msg("consent form opened")
	return s.status(f), nil
}

func (s *service) Status(_ context.Context, formID string) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}
	return s.status(f), nil
}

// Start declares the browser's hardware and begins acquisition in the
// background; the permission prompt is answered later through Respond.
func (s *service) Start(_ context.Context, formID string, mode Mode, decl Declaration) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}

	acquire, err := f.recorder.Begin(mode)
	if err != nil {
		return Status{}, err
	}
	f.devices.Declare(decl)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := acquire(f.ctx); err != nil {
			s.logger.Debug().Err(err).Str("form_id", formID).Str("mode", string(mode)).Msg("acquisition ended without recording")
		}
	}()

	return s.status(f), nil
}

func (s *service) Respond(_ context.Context, formID, requestID string, granted bool) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}
	if err := f.devices.Respond(requestID, granted); err != nil {
		return Status{}, err
	}
	return s.status(f), nil
}

func (s *service) PushChunk(ctx context.Context, formID string, data []byte) error {
	f, err := s.get(formID)
	if err != nil {
		return err
	}
	return f.devices.Push(ctx, data)
}

func (s *service) Stop(ctx context.Context, formID string, mode Mode) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}
	if _, err := f.recorder.Stop(ctx, mode); err != nil {
		return s.status(f), err
	}
	return s.status(f), nil
}

func (s *service) Retake(ctx context.Context, formID string, mode Mode) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}
	if err := f.recorder.Retake(ctx, mode); err != nil {
		return Status{}, err
	}
	return s.status(f), nil
}

func (s *service) SelectTreatment(ctx context.Context, formID, treatmentID string) (Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return Status{}, err
	}
	if err := f.recorder.SelectTreatment(ctx, treatmentID); err != nil {
		return Status{}, err
	}
	return s.status(f), nil
}

func (s *service) Submit(_ context.Context, formID string) (string, Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return "", Status{}, err
	}
	msg, err := f.recorder.SubmitConsent()
	return msg, s.status(f), err
}

func (s *service) TextConsent(_ context.Context, formID string, confirmed bool) (string, Status, error) {
	f, err := s.get(formID)
	if err != nil {
		return "", Status{}, err
	}
	msg, err := f.recorder.TextConsent(confirmed)
	return msg, s.status(f), err
}

func (s *service) Close(ctx context.Context, formID string) error {
	s.mu.Lock()
	f, ok := s.forms[formID]
	delete(s.forms, formID)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFound("consent form not found")
	}
	s.closeForm(ctx, formID, f)
	return nil
}

func (s *service) Blob(ctx context.Context, blobID string) (*Blob, []byte, error) {
	b, data, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		return nil, nil, apperrors.NewNotFound("recording not found")
	}
	return b, data, nil
}

// Shutdown closes every open form and waits for background work.
func (s *service) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	forms := s.forms
	s.forms = make(map[string]*form)
	s.mu.Unlock()

	for id, f := range forms {
		s.closeForm(ctx, id, f)
	}
	s.wg.Wait()
}

func (s *service) closeForm(ctx context.Context, id string, f *form) {
	f.cancel()
	f.recorder.Close(ctx)
	s.logger.Info().Str("form_id", id).Msg("consent form closed")
}

func (s *service) get(formID string) (*form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[formID]
	if !ok {
		return nil, apperrors.NewNotFound("consent form not found")
	}
	f.lastSeen = time.Now()
	return f, nil
}

func (s *service) status(f *form) Status {
	st := f.recorder.Status()
	st.Pending = f.devices.Pending()
	return st
}

// notify hands the record to the listener on a detached context so a slow
// or failing listener never blocks the patient.
func (s *service) notify(rec Record) {
	if s.listener == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.listener.ConsentGiven(bgCtx, rec); err != nil {
			s.logger.Warn().Err(err).Str("form_id", rec.FormID).Msg("consent listener failed")
		}
	}()
}

func (s *service) sweep(ttl time.Duration) {
	defer s.wg.Done()

	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.expireIdle(now, ttl)
		}
	}
}

func (s *service) expireIdle(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	expired := make(map[string]*form)
	for id, f := range s.forms {
		if now.Sub(f.lastSeen) > ttl {
			expired[id] = f
			delete(s.forms, id)
		}
	}
	s.mu.Unlock()

	for id, f := range expired {
		s.closeForm(context.Background(), id, f)
	}
	return len(expired)
}
