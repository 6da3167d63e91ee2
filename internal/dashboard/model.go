package dashboard

import (
	"strconv"
	"strings"
	"unicode"
)

type PatientDetails struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	BloodType     string `json:"bloodType"`
	Diagnosis     string `json:"diagnosis"`
	DiagnosisDate string `json:"diagnosisDate"`
	Physician     string `json:"physician"`
	PatientID     string `json:"patientId"`
}

// Field is one labelled value of a details card.
type Field struct {
	Label string
	Value string
}

// Fields lists the details in display order, labelled from their JSON keys
// ("bloodType" becomes "Blood Type").
func (p PatientDetails) Fields() []Field {
	values := []struct{ key, value string }{
		{"name", p.Name},
		{"age", strconv.Itoa(p.Age)},
		{"gender", p.Gender},
		{"bloodType", p.BloodType},
		{"diagnosis", p.Diagnosis},
		{"diagnosisDate", p.DiagnosisDate},
		{"physician", p.Physician},
		{"patientId", p.PatientID},
	}
	out := make([]Field, len(values))
	for i, v := range values {
		out[i] = Field{Label: Label(v.key), Value: v.value}
	}
	return out
}

// Label splits a camelCase key into capitalised words.
func Label(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type BloodCounts struct {
	WBC       float64 `json:"wbc"`
	RBC       float64 `json:"rbc"`
	Platelets float64 `json:"platelets"`
	ANC       float64 `json:"anc"`
}

func (c BloodCounts) Fields() []Field {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []Field{
		{Label: "WBC", Value: f(c.WBC)},
		{Label: "RBC", Value: f(c.RBC)},
		{Label: "PLATELETS", Value: f(c.Platelets)},
		{Label: "ANC", Value: f(c.ANC)},
	}
}

type ProgressNote struct {
	Date string `json:"date"`
	Note string `json:"note"`
}

type TreatmentProgress struct {
	CurrentPhase    string         `json:"currentPhase"`
	StartDate       string         `json:"startDate"`
	CompletedSteps  int            `json:"completedSteps"`
	TotalSteps      int            `json:"totalSteps"`
	NextAppointment string         `json:"nextAppointment"`
	BloodCounts     BloodCounts    `json:"bloodCounts"`
	ProgressNotes   []ProgressNote `json:"progressNotes"`
}

type DoctorDetails struct {
	Name         string `json:"name"`
	Specialty    string `json:"specialty"`
	Contact      string `json:"contact"`
	Phone        string `json:"phone"`
	Availability string `json:"availability"`
}

type DoctorView struct {
	Doctor   DoctorDetails    `json:"doctor"`
	Patients []PatientDetails `json:"patients"`
}

type PatientView struct {
	Patient  PatientDetails    `json:"patient"`
	Progress TreatmentProgress `json:"treatmentProgress"`
}

type FamilyView struct {
	Patient  PatientDetails    `json:"patient"`
	Progress TreatmentProgress `json:"treatmentProgress"`
	Doctor   DoctorDetails     `json:"doctor"`
}
