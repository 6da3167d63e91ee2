package report

import (
	"fmt"
	"strings"
	"time"

	"leukemia-care-portal/internal/consent"
	"leukemia-care-portal/internal/dashboard"
)

const (
	generatedLayout = "2006-01-02 15:04:05"
	consentLayout   = "2006-01-02"
)

var (
	colorTitle   = [3]uint8{220, 53, 69}
	colorHeading = [3]uint8{0, 0, 0}
	colorBody    = [3]uint8{60, 60, 60}
	colorFooter  = [3]uint8{150, 150, 150}
)

// Plan is the treatment the patient consented to.
type Plan struct {
	Treatment   consent.TreatmentOption
	ConsentedAt time.Time
}

type Document struct {
	Patient     dashboard.PatientDetails
	Progress    dashboard.TreatmentProgress
	Plan        *Plan
	GeneratedAt time.Time
}

// FileName is the patient's name with whitespace runs replaced by
// underscores, e.g. John_Smith_Medical_Report.pdf.
func (d Document) FileName() string {
	return strings.Join(strings.Fields(d.Patient.Name), "_") + "_Medical_Report.pdf"
}

func (d Document) footer(page, total int) string {
	return fmt.Sprintf("Generated on %s - Page %d of %d", d.GeneratedAt.Format(generatedLayout), page, total)
}

type line struct {
	text   string
	size   float64
	color  [3]uint8
	center bool
	before float64
}

func heading(text string, size, before float64) line {
	return line{text: text, size: size, color: colorHeading, before: before}
}

func body(text string) line {
	return line{text: text, size: 12, color: colorBody}
}

func (d Document) lines() []line {
	out := []line{
		{text: "Patient Medical Report", size: 22, color: colorTitle, center: true},
		heading("Patient Information", 16, 20),
	}
	for _, f := range d.Patient.Fields() {
		out = append(out, body(f.Label+": "+f.Value))
	}

	p := d.Progress
	out = append(out,
		heading("Treatment Progress", 16, 14),
		body("Current Phase: "+p.CurrentPhase),
		body("Start Date: "+p.StartDate),
		body(fmt.Sprintf("Progress: %d of %d steps", p.CompletedSteps, p.TotalSteps)),
		body("Next Appointment: "+p.NextAppointment),
		heading("Latest Blood Counts", 14, 14),
	)
	for _, f := range p.BloodCounts.Fields() {
		out = append(out, body(f.Label+": "+f.Value))
	}

	out = append(out, heading("Progress Notes", 14, 14))
	for _, n := range p.ProgressNotes {
		out = append(out, body(n.Date+": "+n.Note))
	}

	if d.Plan != nil {
		t := d.Plan.Treatment
		out = append(out,
			heading("Treatment Plan", 16, 20),
			body("Selected Treatment: "+t.Name),
			body("Description: "+t.Description),
			body("Expected Duration: "+t.Duration),
			body("Consent Status: Consent provided on "+d.Plan.ConsentedAt.Format(consentLayout)),
		)
	}
	return out
}
