package patient

import (
	"sort"
	"time"
)

// Lab is a single lab result from the lab file.
type Lab struct {
	PatientID   string    `db:"patient_id" json:"patient_id"`
	AdmissionID string    `db:"admission_id" json:"admission_id"`
	Name        string    `db:"lab_name" json:"lab_name"`
	Value       float64   `db:"lab_value" json:"lab_value"`
	Units       string    `db:"lab_units" json:"lab_units"`
	Date        time.Time `db:"lab_date" json:"lab_date"`
}

// Patient holds demographics and every lab result recorded for the patient.
// Patients built with NewPatient are immutable and safe for concurrent reads.
type Patient struct {
	ID                  string    `db:"patient_id" json:"patient_id"`
	Gender              string    `db:"gender" json:"gender"`
	DateOfBirth         time.Time `db:"date_of_birth" json:"date_of_birth"`
	Race                string    `db:"race" json:"race"`
	MaritalStatus       string    `db:"marital_status" json:"marital_status"`
	Language            string    `db:"language" json:"language"`
	PercentBelowPoverty *float64  `db:"percent_below_poverty" json:"percent_below_poverty,omitempty"`
	Labs                []*Lab    `json:"labs"`

	labIndex map[string][]*Lab
}

// NewPatient returns a copy of p owning labs, with the by-name lab index
// already built.
func NewPatient(p Patient, labs []*Lab) *Patient {
	p.Labs = labs
	p.labIndex = make(map[string][]*Lab)
	for _, l := range labs {
		p.labIndex[l.Name] = append(p.labIndex[l.Name], l)
	}
	return &p
}

// LabsNamed returns the patient's labs with the given name in recorded order.
func (p *Patient) LabsNamed(name string) []*Lab {
	if p.labIndex != nil {
		return p.labIndex[name]
	}
	var out []*Lab
	for _, l := range p.Labs {
		if l.Name == name {
			out = append(out, l)
		}
	}
	return out
}

// LabNames returns the distinct lab names recorded for the patient, sorted.
func (p *Patient) LabNames() []string {
	seen := make(map[string]struct{})
	for _, l := range p.Labs {
		seen[l.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Age returns the patient's age in whole years on asOf.
func (p *Patient) Age(asOf time.Time) int {
	return Age(asOf, p.DateOfBirth)
}

// AgeAtFirstEncounter returns the youngest age at which any lab was recorded.
// Lab encounters stand in for admissions; the data has no separate admission
// event.
func (p *Patient) AgeAtFirstEncounter() (int, error) {
	if len(p.Labs) == 0 {
		return 0, ErrNoLabs
	}
	youngest := p.Age(p.Labs[0].Date)
	for _, l := range p.Labs[1:] {
		if a := p.Age(l.Date); a < youngest {
			youngest = a
		}
	}
	return youngest, nil
}
