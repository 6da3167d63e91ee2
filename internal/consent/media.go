package consent

import (
	"context"

	"leukemia-care-portal/internal/platform/apperrors"
)

const (
	KindVideoInput = "videoinput"
	KindAudioInput = "audioinput"

	TrackVideo = "video"
	TrackAudio = "audio"
)

type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Kind     string `json:"kind"`
	Label    string `json:"label,omitempty"`
}

type VideoConstraints struct {
	IdealWidth  int    `json:"ideal_width"`
	IdealHeight int    `json:"ideal_height"`
	FacingMode  string `json:"facing_mode"`
	DeviceID    string `json:"device_id,omitempty"`
}

type AudioConstraints struct {
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

// Constraints describes the hardware a recording asks for. A nil Video means
// audio only; a nil Audio with Video set never happens here.
type Constraints struct {
	Video *VideoConstraints `json:"video,omitempty"`
	Audio *AudioConstraints `json:"audio,omitempty"`
}

// MediaDevices is the capture hardware as seen by a recorder.
type MediaDevices interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
	IsTypeSupported(mimeType string) bool
}

// Stream is an acquired capture stream. Chunks yields encoded fragments in
// capture order.
type Stream interface {
	Tracks() []Track
	Chunks() <-chan []byte
}

type Track interface {
	Kind() string
	Stop()
	Live() bool
}

// Prompter shows the camera explanation and blocks until it is acknowledged.
type Prompter interface {
	Explain(ctx context.Context, title, message string) error
}

var (
	VideoMIMEPreference = []string{"video/webm;codecs=vp9,opus", "video/webm", "video/mp4"}
	AudioMIMEPreference = []string{"audio/webm;codecs=opus", "audio/webm", "audio/mp4"}
)

// NegotiateMIME picks the first supported container for mode.
func NegotiateMIME(devices MediaDevices, mode Mode) (string, error) {
	prefs := AudioMIMEPreference
	if mode == ModeVideo {
		prefs = VideoMIMEPreference
	}
	for _, mime := range prefs {
		if devices.IsTypeSupported(mime) {
			return mime, nil
		}
	}
	return "", apperrors.NewUnsupportedCodec("no supported recording format for " + string(mode) + " consent")
}

func videoConstraints(deviceID string) Constraints {
	return Constraints{
		Video: &VideoConstraints{
			IdealWidth:  1280,
			IdealHeight: 720,
			FacingMode:  "user",
			DeviceID:    deviceID,
		},
		Audio: &AudioConstraints{},
	}
}

func audioConstraints() Constraints {
	return Constraints{
		Audio: &AudioConstraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
		},
	}
}

func stopTracks(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
