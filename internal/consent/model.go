package consent

import (
	"time"
)

type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

func (m Mode) Valid() bool {
	return m == ModeVideo || m == ModeAudio
}

func (m Mode) other() Mode {
	if m == ModeVideo {
		return ModeAudio
	}
	return ModeVideo
}

type State string

const (
	StateIdle       State = "Idle"
	StateRequesting State = "Requesting"
	StateRecording  State = "Recording"
	StateStopped    State = "Stopped"
	StateError      State = "Error"
)

// Method records how consent was captured.
type Method string

const (
	MethodVideo Method = "video"
	MethodAudio Method = "audio"
	MethodText  Method = "text"
)

const (
	MsgConsentRecorded    = "Consent recorded successfully!"
	MsgRecordingRequired  = "Please complete either video or audio consent recording first."
	MsgConfirmTextConsent = "Are you sure you want to provide consent without video recording? This will be noted in your medical record."

	PermissionPromptTitle   = "Camera Permission Required"
	PermissionPromptMessage = "Please allow access to your camera and microphone when prompted by your browser. " +
		"If you've previously denied permission, you'll need to reset it in your browser settings."
)

type TreatmentOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

var TreatmentOptions = []TreatmentOption{
	{ID: "standard", Name: "Standard Chemotherapy", Description: "Traditional multi-drug regimen", Duration: "6-8 months"},
	{ID: "targeted", Name: "Targeted Therapy", Description: "Molecular targeted approach", Duration: "12 months"},
	{ID: "immunotherapy", Name: "Immunotherapy", Description: "Immune system enhancement", Duration: "12-18 months"},
	{ID: "clinical-trial", Name: "Clinical Trial Protocol", Description: "Experimental treatment option", Duration: "Variable"},
}

func FindTreatment(id string) (TreatmentOption, bool) {
	for _, t := range TreatmentOptions {
		if t.ID == id {
			return t, true
		}
	}
	return TreatmentOption{}, false
}

// SessionView is a point-in-time copy of one mode's recording session.
type SessionView struct {
	Mode           Mode      `json:"mode"`
	State          State     `json:"state"`
	MIMEType       string    `json:"mime_type,omitempty"`
	Chunks         int       `json:"chunks"`
	Bytes          int64     `json:"bytes"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	BlobID         string    `json:"blob_id,omitempty"`
	BlobURL        string    `json:"blob_url,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Status is the full observable state of one consent form.
type Status struct {
	FormID       string           `json:"form_id"`
	Treatment    *TreatmentOption `json:"treatment,omitempty"`
	ConsentGiven bool             `json:"consent_given"`
	Method       Method           `json:"method,omitempty"`
	Video        SessionView      `json:"video"`
	Audio        SessionView      `json:"audio"`
	Pending      *PendingRequest  `json:"pending,omitempty"`
}

// Record is handed to listeners once consent is given.
type Record struct {
	FormID     string
	Treatment  string
	Method     Method
	MIMEType   string
	BlobID     string
	RecordedAt time.Time
}
