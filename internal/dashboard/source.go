package dashboard

import "context"

// Source supplies the read-only dashboard state. There is no patient record
// system behind the portal; MockSource is the only implementation.
type Source interface {
	Doctor(ctx context.Context) (DoctorView, error)
	Patient(ctx context.Context) (PatientView, error)
	Family(ctx context.Context) (FamilyView, error)
}

type MockSource struct{}

func (MockSource) patient() PatientDetails {
	return PatientDetails{
		Name:          "John Smith",
		Age:           42,
		Gender:        "Male",
		BloodType:     "A+",
		Diagnosis:     "Acute Lymphoblastic Leukemia (ALL)",
		DiagnosisDate: "2023-11-15",
		Physician:     "Dr. Alex Hess",
		PatientID:     "PT-20231115-001",
	}
}

func (MockSource) progress(completed, total int) TreatmentProgress {
	return TreatmentProgress{
		CurrentPhase:    "Induction",
		StartDate:       "2023-11-20",
		CompletedSteps:  completed,
		TotalSteps:      total,
		NextAppointment: "2024-01-15",
		BloodCounts:     BloodCounts{WBC: 3.5, RBC: 4.2, Platelets: 150, ANC: 1.8},
		ProgressNotes: []ProgressNote{
			{Date: "2023-11-20", Note: "Treatment initiated. Patient tolerated first dose well."},
			{Date: "2023-12-05", Note: "Blood counts improving. Continuing with scheduled protocol."},
			{Date: "2023-12-20", Note: "Mild side effects observed. Medication adjusted."},
		},
	}
}

func (MockSource) doctor() DoctorDetails {
	return DoctorDetails{
		Name:         "Dr. Alex Hess",
		Specialty:    "Oncologist",
		Contact:      "ahess@hospital.com",
		Phone:        "+1 555-123-4567",
		Availability: "Mon-Fri 9am-5pm",
	}
}

func (m MockSource) Doctor(context.Context) (DoctorView, error) {
	return DoctorView{Doctor: m.doctor(), Patients: []PatientDetails{m.patient()}}, nil
}

// Patient shows the finer-grained protocol steps the patient tracks.
func (m MockSource) Patient(context.Context) (PatientView, error) {
	return PatientView{Patient: m.patient(), Progress: m.progress(1, 5)}, nil
}

func (m MockSource) Family(context.Context) (FamilyView, error) {
	return FamilyView{Patient: m.patient(), Progress: m.progress(2, 4), Doctor: m.doctor()}, nil
}
