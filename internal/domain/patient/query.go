package patient

import (
	"fmt"
	"sort"
	"time"
)

// NumOlderThan counts patients whose age on asOf is strictly greater than
// threshold.
func NumOlderThan(threshold float64, patients []*Patient, asOf time.Time) int {
	count := 0
	for _, p := range patients {
		if float64(p.Age(asOf)) > threshold {
			count++
		}
	}
	return count
}

// CheckLabValues reports whether any of the patient's labs named labName
// compares to value as cmp requires. The comparator is validated before any
// lab is looked at. A patient with no labs of that name yields false.
func CheckLabValues(p *Patient, labName, cmp string, value float64) (bool, error) {
	c, err := ParseComparator(cmp)
	if err != nil {
		return false, err
	}
	return checkLabs(p, labName, c, value), nil
}

func checkLabs(p *Patient, labName string, c Comparator, value float64) bool {
	for _, l := range p.LabsNamed(labName) {
		if c.Holds(l.Value, value) {
			return true
		}
	}
	return false
}

// SickPatients returns the sorted, distinct IDs of patients with at least one
// lab named labName that compares to value as cmp requires.
func SickPatients(labName, cmp string, value float64, patients []*Patient) ([]string, error) {
	c, err := ParseComparator(cmp)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	ids := []string{}
	for _, p := range patients {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if checkLabs(p, labName, c, value) {
			seen[p.ID] = struct{}{}
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// FindPatient returns the first patient with the given ID.
func FindPatient(patientID string, patients []*Patient) (*Patient, error) {
	for _, p := range patients {
		if p.ID == patientID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPatientNotFound, patientID)
}

// AgeAtAdmission returns the patient's age at their earliest lab encounter.
func AgeAtAdmission(patientID string, patients []*Patient) (int, error) {
	p, err := FindPatient(patientID, patients)
	if err != nil {
		return 0, err
	}
	age, err := p.AgeAtFirstEncounter()
	if err != nil {
		return 0, fmt.Errorf("age at admission for %q: %w", patientID, err)
	}
	return age, nil
}
