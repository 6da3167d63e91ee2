package appointment

import (
	"strings"

	"leukemia-care-portal/internal/predict"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusDeclined = "Declined"

	referredPrefix = "Referred to "

	DefaultPatientName = "Unknown Patient"
	DefaultDate        = "No Date"
	DefaultTime        = "No Time"
	DefaultType        = "Unknown Type"
	DefaultBookingType = "checkup"

	MsgMissingBookingFields = "Please fill in all required fields for the appointment."
	MsgBookingFailed        = "Failed to book appointment. Please try again later."
	MsgFetchFailed          = "Failed to fetch appointments"
)

// ReferralDoctors are the colleagues a doctor can refer an appointment to.
var ReferralDoctors = []string{
	"Dr. Emily Chen",
	"Dr. Robert Wilson",
	"Dr. Maria Garcia",
	"Dr. James Taylor",
}

func ReferredStatus(doctor string) string {
	return referredPrefix + doctor
}

func IsReferred(status string) bool {
	return strings.HasPrefix(status, referredPrefix)
}

type Appointment struct {
	ID            string `json:"id"`
	PatientName   string `json:"patientName"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	DoctorMessage string `json:"doctorMessage,omitempty"`
	ReferredTo    string `json:"referredTo,omitempty"`
}

// FromRecord fills the placeholders the doctor view shows for missing data.
func FromRecord(rec predict.AppointmentRecord) Appointment {
	return Appointment{
		ID:            rec.ID,
		PatientName:   orDefault(rec.PatientName, DefaultPatientName),
		Date:          orDefault(rec.Date, DefaultDate),
		Time:          orDefault(rec.Time, DefaultTime),
		Type:          orDefault(rec.Type, DefaultType),
		Status:        orDefault(rec.Status, StatusPending),
		Message:       rec.Message,
		DoctorMessage: rec.DoctorNotes,
		ReferredTo:    rec.ReferredTo,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
	ActionRefer   Action = "refer"
)

type ActionRequest struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
	ReferTo string `json:"refer_to,omitempty"`
}

// overlay is a doctor's local decision on one appointment. It is never
// written back to the prediction service.
type overlay struct {
	Status        string `json:"status"`
	DoctorMessage string `json:"doctorMessage"`
	ReferredTo    string `json:"referredTo,omitempty"`
}

func (o overlay) apply(a Appointment) Appointment {
	a.Status = o.Status
	a.DoctorMessage = o.DoctorMessage
	if o.ReferredTo != "" {
		a.ReferredTo = o.ReferredTo
	}
	return a
}

type Booking struct {
	PatientName string `json:"patientName" validate:"notblank"`
	Date        string `json:"date" validate:"notblank"`
	Time        string `json:"time" validate:"notblank"`
	Type        string `json:"type"`
	Message     string `json:"message" validate:"notblank"`
}

type BookingResult struct {
	ConfirmationID string      `json:"confirmationId"`
	Message        string      `json:"message"`
	Appointment    Appointment `json:"appointment"`
}
