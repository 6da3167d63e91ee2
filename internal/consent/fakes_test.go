package consent

import (
	"context"
	"sync"
	"sync/atomic"
)

type fakeTrack struct {
	kind    string
	stopped atomic.Bool
}

func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) Stop()        { t.stopped.Store(true) }
func (t *fakeTrack) Live() bool   { return !t.stopped.Load() }

type fakeStream struct {
	tracks []Track
	ch     chan []byte
}

func (s *fakeStream) Tracks() []Track       { return s.tracks }
func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) allStopped() bool {
	for _, t := range s.tracks {
		if t.Live() {
			return false
		}
	}
	return true
}

type fakeDevices struct {
	mu          sync.Mutex
	devices     []DeviceInfo
	supported   map[string]bool
	permErr     error
	acquired    int
	streams     []*fakeStream
	constraints []Constraints
}

func newFakeDevices(supported ...string) *fakeDevices {
	d := &fakeDevices{
		devices: []DeviceInfo{
			{DeviceID: "mic-1", Kind: KindAudioInput},
			{DeviceID: "cam-1", Kind: KindVideoInput},
			{DeviceID: "cam-2", Kind: KindVideoInput},
		},
		supported: map[string]bool{},
	}
	for _, s := range supported {
		d.supported[s] = true
	}
	return d
}

func (d *fakeDevices) EnumerateDevices(_ context.Context) ([]DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices, nil
}

func (d *fakeDevices) GetUserMedia(_ context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquired++
	d.constraints = append(d.constraints, c)
	if d.permErr != nil {
		return nil, d.permErr
	}
	s := &fakeStream{ch: make(chan []byte, 16)}
	if c.Video != nil {
		s.tracks = append(s.tracks, &fakeTrack{kind: TrackVideo})
	}
	if c.Audio != nil {
		s.tracks = append(s.tracks, &fakeTrack{kind: TrackAudio})
	}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevices) IsTypeSupported(mime string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supported[mime]
}

func (d *fakeDevices) acquiredCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

func (d *fakeDevices) lastStream() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type fakePrompter struct {
	calls atomic.Int32
	err   error
}

func (p *fakePrompter) Explain(_ context.Context, _, _ string) error {
	p.calls.Add(1)
	return p.err
}

type recordingListener struct {
	got chan Record
}

func newRecordingListener() *recordingListener {
	return &recordingListener{got: make(chan Record, 4)}
}

func (l *recordingListener) ConsentGiven(_ context.Context, rec Record) error {
	l.got <- rec
	return nil
}
