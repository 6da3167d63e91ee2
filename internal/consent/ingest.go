package consent

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"leukemia-care-portal/internal/platform/apperrors"
)

type PendingKind string

const (
	PendingPrompt     PendingKind = "prompt"
	PendingPermission PendingKind = "permission"
)

// PendingRequest is a question the browser has to answer before a
// recording can proceed.
type PendingRequest struct {
	ID          string       `json:"id"`
	Kind        PendingKind  `json:"kind"`
	Title       string       `json:"title,omitempty"`
	Message     string       `json:"message,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// Declaration is what the browser reports about its capture hardware.
type Declaration struct {
	Devices        []DeviceInfo `json:"devices"`
	SupportedTypes []string     `json:"supported_types"`
}

type pendingReply struct {
	ctx   context.Context
	req   PendingRequest
	reply chan bool
}

// live reports whether the requester is still waiting. A request whose
// context is done is treated as gone even before await clears it.
func (p *pendingReply) live() bool {
	return p != nil && p.ctx.Err() == nil
}

// IngestDevices is a MediaDevices and Prompter fed by the browser over
// HTTP. Prompts and permission requests block until the browser responds;
// captured media arrives through Push.
type IngestDevices struct {
	mu      sync.Mutex
	decl    Declaration
	pending *pendingReply
	stream  *ingestStream
}

func NewIngestDevices() *IngestDevices {
	return &IngestDevices{}
}

// Declare replaces the device and codec inventory.
func (d *IngestDevices) Declare(decl Declaration) {
	d.mu.Lock()
	d.decl = decl
	d.mu.Unlock()
}

func (d *IngestDevices) EnumerateDevices(_ context.Context) ([]DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeviceInfo, len(d.decl.Devices))
	copy(out, d.decl.Devices)
	return out, nil
}

func (d *IngestDevices) IsTypeSupported(mimeType string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.decl.SupportedTypes {
		if strings.EqualFold(strings.ReplaceAll(t, " ", ""), mimeType) {
			return true
		}
	}
	return false
}

func (d *IngestDevices) Explain(ctx context.Context, title, message string) error {
	_, err := d.await(ctx, PendingRequest{Kind: PendingPrompt, Title: title, Message: message})
	return err
}

func (d *IngestDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	granted, err := d.await(ctx, PendingRequest{Kind: PendingPermission, Constraints: &c})
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, apperrors.NewPermissionDenied("Permission to use the camera or microphone was denied", nil)
	}

	s := newIngestStream(c)
	d.mu.Lock()
	d.stream = s
	d.mu.Unlock()
	return s, nil
}

func (d *IngestDevices) await(ctx context.Context, req PendingRequest) (bool, error) {
	d.mu.Lock()
	if d.pending.live() {
		d.mu.Unlock()
		return false, apperrors.NewConflict("another request is already awaiting a response")
	}
	req.ID = uuid.New().String()
	p := &pendingReply{ctx: ctx, req: req, reply: make(chan bool, 1)}
	d.pending = p
	d.mu.Unlock()

	select {
	case granted := <-p.reply:
		return granted, nil
	case <-ctx.Done():
		d.mu.Lock()
		if d.pending == p {
			d.pending = nil
		}
		d.mu.Unlock()
		return false, ctx.Err()
	}
}

// Pending returns the request the browser must answer, if any.
func (d *IngestDevices) Pending() *PendingRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending.live() {
		return nil
	}
	req := d.pending.req
	return &req
}

// Respond answers the pending request. For prompts, granted is ignored.
func (d *IngestDevices) Respond(requestID string, granted bool) error {
	d.mu.Lock()
	p := d.pending
	if !p.live() {
		d.mu.Unlock()
		return apperrors.NewConflict("nothing is awaiting a response")
	}
	if requestID != "" && requestID != p.req.ID {
		d.mu.Unlock()
		return apperrors.NewNotFound("unknown request id")
	}
	d.pending = nil
	d.mu.Unlock()

	p.reply <- granted
	return nil
}

// Push delivers one recorded fragment to the live stream.
func (d *IngestDevices) Push(ctx context.Context, data []byte) error {
	d.mu.Lock()
	s := d.stream
	d.mu.Unlock()
	if s == nil {
		return apperrors.NewConflict("no active capture stream")
	}
	return s.push(ctx, data)
}

type ingestStream struct {
	chunks chan []byte
	ended  chan struct{}
	once   sync.Once

	mu     sync.Mutex
	tracks []Track
}

func newIngestStream(c Constraints) *ingestStream {
	s := &ingestStream{
		chunks: make(chan []byte, 64),
		ended:  make(chan struct{}),
	}
	if c.Video != nil {
		s.tracks = append(s.tracks, &ingestTrack{kind: TrackVideo, stream: s, live: true})
	}
	if c.Audio != nil {
		s.tracks = append(s.tracks, &ingestTrack{kind: TrackAudio, stream: s, live: true})
	}
	return s
}

func (s *ingestStream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *ingestStream) Chunks() <-chan []byte {
	return s.chunks
}

func (s *ingestStream) push(ctx context.Context, data []byte) error {
	select {
	case <-s.ended:
		return apperrors.NewConflict("capture stream has ended")
	default:
	}
	select {
	case s.chunks <- data:
		return nil
	case <-s.ended:
		return apperrors.NewConflict("capture stream has ended")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ingestStream) trackStopped() {
	s.mu.Lock()
	for _, t := range s.tracks {
		if t.Live() {
			s.mu.Unlock()
			return
		}
	}
	s.mu.Unlock()
	s.once.Do(func() { close(s.ended) })
}

type ingestTrack struct {
	kind   string
	stream *ingestStream

	mu   sync.Mutex
	live bool
}

func (t *ingestTrack) Kind() string {
	return t.kind
}

func (t *ingestTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

func (t *ingestTrack) Stop() {
	t.mu.Lock()
	t.live = false
	t.mu.Unlock()
	t.stream.trackStopped()
}
