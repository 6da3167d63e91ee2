package consent

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/platform/apperrors"
)

type Options struct {
	// Timeslice is how often buffered media is sealed into a chunk.
	Timeslice time.Duration

	// Tick drives the elapsed-seconds counter.
	Tick time.Duration

	MaxBytes int64
}

func (o Options) withDefaults() Options {
	if o.Timeslice <= 0 {
		o.Timeslice = time.Second
	}
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	return o
}

// Recorder is the consent state of a single form instance. It owns both
// mode sessions along with their streams, timers and blobs; nothing it
// starts outlives Stop, Retake or Close.
type Recorder struct {
	id       string
	devices  MediaDevices
	prompter Prompter
	blobs    BlobStore
	opts     Options
	logger   zerolog.Logger

	mu           sync.Mutex
	sessions     map[Mode]*session
	treatment    string
	consentGiven bool
	method       Method
	onConsent    func(Record)
	closed       bool
}

type session struct {
	mode      Mode
	state     State
	mime      string
	stream    Stream
	startedAt time.Time
	abort     context.CancelFunc
	cancel    context.CancelFunc
	done      chan struct{}
	buf       *chunkBuffer
	blob      *Blob
	errMsg    string
}

func newSession(mode Mode, state State) *session {
	return &session{mode: mode, state: state, buf: &chunkBuffer{}}
}

func NewRecorder(id string, devices MediaDevices, prompter Prompter, blobs BlobStore, logger zerolog.Logger, opts Options) *Recorder {
	return &Recorder{
		id:        id,
		devices:   devices,
		prompter:  prompter,
		blobs:     blobs,
		opts:      opts.withDefaults(),
		treatment: TreatmentOptions[0].ID,
		logger:    logger.With().Str("component", "consent").Str("form_id", id).Logger(),
		sessions:  map[Mode]*session{
			ModeVideo: newSession(ModeVideo, StateIdle),
			ModeAudio: newSession(ModeAudio, StateIdle),
		},
	}
}

func (r *Recorder) ID() string {
	return r.id
}

// OnConsent registers fn to run after consent is given. fn is called without
// the recorder lock held.
func (r *Recorder) OnConsent(fn func(Record)) {
	r.mu.Lock()
	r.onConsent = fn
	r.mu.Unlock()
}

// Start runs a full acquisition for mode and returns once recording has
// begun or the attempt failed.
func (r *Recorder) Start(ctx context.Context, mode Mode) error {
	acquire, err := r.Begin(mode)
	if err != nil {
		return err
	}
	return acquire(ctx)
}

// Begin moves mode into Requesting and returns the acquisition step. Callers
// that cannot block on the permission prompt run the step in the background.
// A rejected Begin never touches hardware.
func (r *Recorder) Begin(mode Mode) (func(context.Context) error, error) {
	if !mode.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown consent mode %q", mode), "mode")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, apperrors.NewConflict("consent form is closed")
	}
	if other := r.sessions[mode.other()]; other.state == StateRequesting || other.state == StateRecording {
		return nil, apperrors.NewConflict(fmt.Sprintf("cannot start %s consent while %s recording is in progress", mode, other.mode))
	}

	switch cur := r.sessions[mode]; cur.state {
	case StateRequesting, StateRecording:
		return nil, apperrors.NewConflict(fmt.Sprintf("%s recording already in progress", mode))
	case StateStopped:
		return nil, apperrors.NewConflict(fmt.Sprintf("%s recording already complete; retake it first", mode))
	}

	s := newSession(mode, StateRequesting)
	r.sessions[mode] = s

	return func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		r.mu.Lock()
		if r.closed || r.sessions[mode] != s || s.state != StateRequesting {
			r.mu.Unlock()
			return apperrors.NewConflict(fmt.Sprintf("%s recording was cancelled", mode))
		}
		s.abort = cancel
		r.mu.Unlock()

		return r.acquire(ctx, s)
	}, nil
}

func (r *Recorder) acquire(ctx context.Context, s *session) error {
	var (
		mime     string
		deviceID string
		err      error
	)

	if s.mode == ModeVideo {
		deviceID, err = r.firstVideoInput(ctx)
		if err != nil {
			return r.fail(s, nil, err)
		}
	}

	mime, err = NegotiateMIME(r.devices, s.mode)
	if err != nil {
		return r.fail(s, nil, err)
	}

	constraints := audioConstraints()
	if s.mode == ModeVideo {
		if err := r.prompter.Explain(ctx, PermissionPromptTitle, PermissionPromptMessage); err != nil {
			return r.fail(s, nil, apperrors.NewPermissionDenied("camera permission prompt was not acknowledged", err))
		}
		constraints = videoConstraints(deviceID)
	}

	stream, err := r.devices.GetUserMedia(ctx, constraints)
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewPermissionDenied(fmt.Sprintf("could not access %s devices", s.mode), err)
		}
		return r.fail(s, stream, err)
	}

	return r.record(s, mime, stream)
}

func (r *Recorder) firstVideoInput(ctx context.Context) (string, error) {
	devices, err := r.devices.EnumerateDevices(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("device enumeration failed")
	}
	for _, d := range devices {
		if d.Kind == KindVideoInput {
			return d.DeviceID, nil
		}
	}
	return "", apperrors.NewNoDevice("No video input devices found")
}

// fail releases any partial stream and parks s in Error, unless s was
// superseded while the request was in flight.
func (r *Recorder) fail(s *session, stream Stream, err error) error {
	stopTracks(stream)

	msg := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		msg = appErr.Message
	}

	r.mu.Lock()
	if r.sessions[s.mode] == s && s.state == StateRequesting {
		s.state = StateError
		s.errMsg = msg
	}
	r.mu.Unlock()

	r.logger.Warn().Err(err).Str("mode", string(s.mode)).Msg("consent recording could not start")
	return err
}

func (r *Recorder) record(s *session, mime string, stream Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.sessions[s.mode] != s || s.state != StateRequesting {
		stopTracks(stream)
		return apperrors.NewConflict(fmt.Sprintf("%s recording was cancelled", s.mode))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.state = StateRecording
	s.mime = mime
	s.stream = stream
	s.startedAt = time.Now()
	s.cancel = cancel
	s.done = make(chan struct{})

	go r.collect(ctx, s.buf, stream, s.startedAt, s.done)

	r.logger.Info().Str("mode", string(s.mode)).Str("mime_type", mime).Msg("consent recording started")
	return nil
}

// collect buffers stream data until ctx is cancelled, sealing a chunk every
// timeslice and updating the elapsed counter every tick.
func (r *Recorder) collect(ctx context.Context, buf *chunkBuffer, stream Stream, startedAt time.Time, done chan struct{}) {
	defer close(done)

	slice := time.NewTicker(r.opts.Timeslice)
	defer slice.Stop()
	tick := time.NewTicker(r.opts.Tick)
	defer tick.Stop()

	chunks := stream.Chunks()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			buf.write(data, r.opts.MaxBytes)
		case <-slice.C:
			buf.seal()
		case now := <-tick.C:
			buf.setElapsed(int(now.Sub(startedAt) / time.Second))
		}
	}
}

// release cancels any in-flight acquisition and stops the hardware and the
// collector for s. Safe to call on a session that holds none of them.
func (r *Recorder) release(s *session) {
	if s.abort != nil {
		s.abort()
		s.abort = nil
	}
	stopTracks(s.stream)
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	if s.stream != nil {
		drain(s.stream.Chunks(), s.buf, r.opts.MaxBytes)
		s.buf.seal()
	}
}

func drain(ch <-chan []byte, buf *chunkBuffer, maxBytes int64) {
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			buf.write(data, maxBytes)
		default:
			return
		}
	}
}

// Stop finalizes the active recording for mode into a single blob. Stopping
// while the permission request is still open cancels it and returns mode to
// Idle. Hardware and timers are released even when there is nothing to stop.
func (r *Recorder) Stop(ctx context.Context, mode Mode) (SessionView, error) {
	if !mode.Valid() {
		return SessionView{}, apperrors.NewValidation(fmt.Sprintf("unknown consent mode %q", mode), "mode")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[mode]
	if s.state == StateRequesting {
		r.discard(ctx, s)
		r.sessions[mode] = newSession(mode, StateIdle)
		r.logger.Info().Str("mode", string(mode)).Msg("consent request cancelled before recording")
		return r.sessions[mode].view(), nil
	}
	if s.state != StateRecording {
		r.release(s)
		r.logger.Warn().Str("mode", string(mode)).Str("state", string(s.state)).Msg("stop requested with no active recording")
		return s.view(), apperrors.NewConflict(fmt.Sprintf("no active %s recording to stop", mode))
	}

	r.release(s)

	data := s.buf.bytes()
	if s.buf.truncatedData() {
		r.logger.Warn().Str("mode", string(mode)).Int64("max_bytes", r.opts.MaxBytes).Msg("recording truncated at size limit")
	}
	if len(data) == 0 {
		s.state = StateError
		s.errMsg = fmt.Sprintf("Recorded %s has no data", mode)
		r.logger.Warn().Str("mode", string(mode)).Msg("recording stopped with no data")
		return s.view(), apperrors.NewValidation(s.errMsg)
	}

	blob, err := r.blobs.Put(ctx, s.mime, data)
	if err != nil {
		s.state = StateError
		s.errMsg = "failed to store recording"
		return s.view(), apperrors.NewInternal(s.errMsg, err)
	}

	s.blob = blob
	s.state = StateStopped
	r.logger.Info().
		Str("mode", string(mode)).
		Str("blob_id", blob.ID).
		Int64("bytes", blob.Size).
		Int("chunks", s.buf.count()).
		Msg("consent recording stopped")

	return s.view(), nil
}

// Retake discards mode's recording and returns it to Idle.
func (r *Recorder) Retake(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return apperrors.NewValidation(fmt.Sprintf("unknown consent mode %q", mode), "mode")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.discard(ctx, r.sessions[mode])
	r.sessions[mode] = newSession(mode, StateIdle)
	return nil
}

func (r *Recorder) discard(ctx context.Context, s *session) {
	r.release(s)
	if s.blob != nil {
		if err := r.blobs.Delete(ctx, s.blob.ID); err != nil {
			r.logger.Warn().Err(err).Str("blob_id", s.blob.ID).Msg("failed to delete recording")
		}
		s.blob = nil
	}
	s.buf.reset()
}

// Close releases every stream, timer and blob held for the form.
func (r *Recorder) Close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for mode, s := range r.sessions {
		r.discard(ctx, s)
		r.sessions[mode] = newSession(mode, StateIdle)
	}
	r.closed = true
}

// SelectTreatment switches the treatment under consideration. Any consent
// and completed video recording belong to the previous choice and are reset.
func (r *Recorder) SelectTreatment(ctx context.Context, treatmentID string) error {
	if _, ok := FindTreatment(treatmentID); !ok {
		return apperrors.NewValidation(fmt.Sprintf("unknown treatment option %q", treatmentID), "treatment_id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.treatment = treatmentID
	r.consentGiven = false
	r.method = ""
	if video := r.sessions[ModeVideo]; video.state == StateStopped {
		r.discard(ctx, video)
		r.sessions[ModeVideo] = newSession(ModeVideo, StateIdle)
	}
	return nil
}

// SubmitConsent marks consent given once a video or audio recording is
// complete.
func (r *Recorder) SubmitConsent() (string, error) {
	r.mu.Lock()

	var s *session
	switch {
	case r.sessions[ModeVideo].state == StateStopped:
		s = r.sessions[ModeVideo]
		r.method = MethodVideo
	case r.sessions[ModeAudio].state == StateStopped:
		s = r.sessions[ModeAudio]
		r.method = MethodAudio
	default:
		r.mu.Unlock()
		return "", apperrors.NewValidation(MsgRecordingRequired)
	}
	r.consentGiven = true

	rec := Record{
		FormID:     r.id,
		Treatment:  r.treatment,
		Method:     r.method,
		MIMEType:   s.mime,
		RecordedAt: time.Now(),
	}
	if s.blob != nil {
		rec.BlobID = s.blob.ID
	}
	cb := r.onConsent
	r.mu.Unlock()

	r.logger.Info().Str("method", string(rec.Method)).Str("treatment", rec.Treatment).Msg("consent recorded")
	if cb != nil {
		cb(rec)
	}
	return MsgConsentRecorded, nil
}

// TextConsent records consent without any recording. It is an explicit
// policy exception and only proceeds when the patient confirmed the
// warning.
func (r *Recorder) TextConsent(confirmed bool) (string, error) {
	if !confirmed {
		return "", apperrors.NewValidation(MsgConfirmTextConsent, "confirmed")
	}

	r.mu.Lock()
	r.consentGiven = true
	r.method = MethodText
	rec := Record{
		FormID:     r.id,
		Treatment:  r.treatment,
		Method:     MethodText,
		RecordedAt: time.Now(),
	}
	cb := r.onConsent
	r.mu.Unlock()

	r.logger.Warn().Str("treatment", rec.Treatment).Msg("consent given without recording")
	if cb != nil {
		cb(rec)
	}
	return MsgConsentRecorded, nil
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		FormID:       r.id,
		ConsentGiven: r.consentGiven,
		Method:       r.method,
		Video:        r.sessions[ModeVideo].view(),
		Audio:        r.sessions[ModeAudio].view(),
	}
	if t, ok := FindTreatment(r.treatment); ok {
		st.Treatment = &t
	}
	return st
}

// Blob returns the finalized recording for mode, if any.
func (r *Recorder) Blob(mode Mode) (*Blob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[mode]
	if !ok || s.blob == nil {
		return nil, false
	}
	b := *s.blob
	return &b, true
}

func (s *session) view() SessionView {
	v := SessionView{
		Mode:      s.mode,
		State:     s.state,
		MIMEType:  s.mime,
		StartedAt: s.startedAt,
		Error:     s.errMsg,
	}
	v.Chunks, v.Bytes, v.ElapsedSeconds = s.buf.stats()
	if s.blob != nil {
		v.BlobID = s.blob.ID
		v.BlobURL = s.blob.URL
	}
	return v
}

type chunkBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	pending   []byte
	size      int64
	elapsed   int
	truncated bool
}

func (b *chunkBuffer) write(data []byte, maxBytes int64) {
	if len(data) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// The blob stays a prefix of the stream: nothing is kept after the
	// first fragment that did not fit.
	if b.truncated {
		return
	}
	if maxBytes > 0 && b.size+int64(len(data)) > maxBytes {
		b.truncated = true
		return
	}
	b.pending = append(b.pending, data...)
	b.size += int64(len(data))
}

func (b *chunkBuffer) seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return
	}
	b.chunks = append(b.chunks, b.pending)
	b.pending = nil
}

func (b *chunkBuffer) setElapsed(sec int) {
	b.mu.Lock()
	b.elapsed = sec
	b.mu.Unlock()
}

func (b *chunkBuffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Join(b.chunks, nil)
}

func (b *chunkBuffer) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

func (b *chunkBuffer) truncatedData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func (b *chunkBuffer) stats() (int, int64, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks), b.size, b.elapsed
}

func (b *chunkBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.pending = nil
	b.size = 0
	b.elapsed = 0
	b.truncated = false
}
