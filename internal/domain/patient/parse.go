package patient

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ehr/analysis/internal/platform/flatfile"
)

// Column headers of the patient and lab exports.
var (
	PatientHeader = []string{
		"PatientID",
		"PatientGender",
		"PatientDateOfBirth",
		"PatientRace",
		"PatientMaritalStatus",
		"PatientLanguage",
		"PatientPopulationPercentageBelowPoverty",
	}
	LabHeader = []string{
		"PatientID",
		"AdmissionID",
		"LabName",
		"LabValue",
		"LabUnits",
		"LabDateTime",
	}
)

// ParseData reads the patient and lab files and returns the patients in file
// order, each owning its labs. The lab file is read in full first so every
// patient is built with its complete lab list. Labs whose patient ID is not in
// the patient file are not attached to anyone.
//
// Any row with the wrong number of fields or an unparseable date or number
// fails the whole parse with a *flatfile.MalformedRecordError.
func ParseData(patientPath, labPath string) ([]*Patient, error) {
	labs, err := readLabs(labPath)
	if err != nil {
		return nil, err
	}

	r, err := flatfile.Open(patientPath, len(PatientHeader))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var patients []*Patient
	for {
		row, err := r.Read()
		if err == io.EOF {
			return patients, nil
		}
		if err != nil {
			return nil, err
		}
		p, err := PatientFromRow(row)
		if err != nil {
			return nil, malformed(r, err)
		}
		patients = append(patients, NewPatient(p, labs[p.ID]))
	}
}

func readLabs(path string) (map[string][]*Lab, error) {
	r, err := flatfile.Open(path, len(LabHeader))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	byPatient := make(map[string][]*Lab)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return byPatient, nil
		}
		if err != nil {
			return nil, err
		}
		l, err := LabFromRow(row)
		if err != nil {
			return nil, malformed(r, err)
		}
		byPatient[l.PatientID] = append(byPatient[l.PatientID], l)
	}
}

func malformed(r *flatfile.Reader, err error) error {
	return &flatfile.MalformedRecordError{
		Path:   r.Path(),
		Line:   r.Line(),
		Reason: "invalid value",
		Err:    err,
	}
}

// PatientFromRow builds patient demographics from one patient file row. The
// returned value has no labs; pass it to NewPatient.
func PatientFromRow(row []string) (Patient, error) {
	if len(row) != len(PatientHeader) {
		return Patient{}, fmt.Errorf("patient row has %d fields, want %d", len(row), len(PatientHeader))
	}
	dob, err := ParseDate(row[2])
	if err != nil {
		return Patient{}, fmt.Errorf("date of birth: %w", err)
	}
	p := Patient{
		ID:            row[0],
		Gender:        row[1],
		DateOfBirth:   dob,
		Race:          row[3],
		MaritalStatus: row[4],
		Language:      row[5],
	}
	if row[6] != "" {
		pct, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return Patient{}, fmt.Errorf("percent below poverty: %w", err)
		}
		p.PercentBelowPoverty = &pct
	}
	return p, nil
}

// LabFromRow builds a lab result from one lab file row.
func LabFromRow(row []string) (*Lab, error) {
	if len(row) != len(LabHeader) {
		return nil, fmt.Errorf("lab row has %d fields, want %d", len(row), len(LabHeader))
	}
	value, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return nil, fmt.Errorf("lab value: %w", err)
	}
	date, err := ParseDate(row[5])
	if err != nil {
		return nil, fmt.Errorf("lab date: %w", err)
	}
	return &Lab{
		PatientID:   row[0],
		AdmissionID: row[1],
		Name:        row[2],
		Value:       value,
		Units:       row[4],
		Date:        date,
	}, nil
}
