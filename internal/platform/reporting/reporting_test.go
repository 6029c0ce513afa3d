package reporting

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/analysis/internal/domain/patient"
)

var asOf = time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func testPatients() []*patient.Patient {
	a := patient.NewPatient(patient.Patient{ID: "A", Gender: "Male", DateOfBirth: day(1960, 11, 1)}, []*patient.Lab{
		{PatientID: "A", Name: "CBC: RED BLOOD CELL COUNT", Value: 20.5, Units: "m/cumm", Date: day(1967, 11, 1)},
		{PatientID: "A", Name: "CBC: RED BLOOD CELL COUNT", Value: 85, Units: "m/cumm", Date: day(1980, 5, 5)},
		{PatientID: "A", Name: "METABOLIC: POTASSIUM", Value: 4, Units: "mmol/L", Date: day(1980, 5, 5)},
	})
	b := patient.NewPatient(patient.Patient{ID: "B", Gender: "Female", DateOfBirth: day(1980, 2, 29)}, []*patient.Lab{
		{PatientID: "B", Name: "CBC: RED BLOOD CELL COUNT", Value: 79, Units: "m/cumm", Date: day(2004, 3, 1)},
	})
	c := patient.NewPatient(patient.Patient{ID: "C", Gender: "Female", DateOfBirth: day(2000, 1, 1)}, nil)
	return []*patient.Patient{a, b, c}
}

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{"patient-count", "patients-by-gender", "lab-summary"}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, id := range expectedIDs {
		m := PredefinedMeasures[i]
		if m.ID != id {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, id, m.ID)
		}
		if m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is missing a name or description", m.ID)
		}
		if FindMeasure(id) == nil {
			t.Errorf("FindMeasure(%q) returned nil", id)
		}
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestEvaluate_PatientCount(t *testing.T) {
	report, err := Evaluate("patient-count", testPatients(), asOf)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.MeasureName != "Patient Count" || report.AsOf != "2022-11-01" {
		t.Errorf("unexpected report header: %+v", report)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result row, got %d", len(report.Results))
	}
	if report.Results[0]["patients"] != 3 || report.Results[0]["labs"] != 4 {
		t.Errorf("results = %v", report.Results[0])
	}
}

func TestEvaluate_PatientsByGender(t *testing.T) {
	report, err := Evaluate("patients-by-gender", testPatients(), asOf)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(report.Results))
	}
	female, male := report.Results[0], report.Results[1]
	if female["gender"] != "female" || female["total"] != 2 || female["mean_age"] != 32.0 {
		t.Errorf("female group = %v", female)
	}
	if male["gender"] != "male" || male["total"] != 1 || male["mean_age"] != 62.0 {
		t.Errorf("male group = %v", male)
	}
}

func TestEvaluate_EmptyDataset(t *testing.T) {
	report, err := Evaluate("lab-summary", nil, asOf)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Results == nil || len(report.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", report.Results)
	}
}

func TestEvaluate_NotFound(t *testing.T) {
	_, err := Evaluate("nonexistent", testPatients(), asOf)
	if !errors.Is(err, ErrMeasureNotFound) {
		t.Errorf("error = %v, want ErrMeasureNotFound", err)
	}
}

func TestLabMeasures(t *testing.T) {
	measures := LabMeasures(testPatients())
	if len(measures) != 2 {
		t.Fatalf("expected 2 lab names, got %d", len(measures))
	}

	rbc := measures[0]
	if rbc.Name != "CBC: RED BLOOD CELL COUNT" {
		t.Fatalf("measures not sorted by name: %v", measures)
	}
	if rbc.Count != 3 || rbc.Patients != 2 {
		t.Errorf("rbc count/patients = %d/%d, want 3/2", rbc.Count, rbc.Patients)
	}
	if rbc.Min != 20.5 || rbc.Max != 85 || rbc.Mean != 61.5 {
		t.Errorf("rbc min/max/mean = %v/%v/%v", rbc.Min, rbc.Max, rbc.Mean)
	}
	if rbc.Units != "m/cumm" {
		t.Errorf("rbc units = %q", rbc.Units)
	}

	k := measures[1]
	if k.Count != 1 || k.Patients != 1 || k.Mean != 4 {
		t.Errorf("potassium = %+v", k)
	}
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook(testPatients(), asOf)
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != PatientsSheet || sheets[1] != LabSummarySheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(PatientsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 patient rows, got %d", len(rows))
	}
	if rows[0][0] != "Patient ID" || rows[0][4] != "Age at First Admission" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "A" || rows[1][2] != "1960-11-01" || rows[1][3] != "62" || rows[1][4] != "7" || rows[1][5] != "3" {
		t.Errorf("row A = %v", rows[1])
	}
	if rows[2][4] != "24" {
		t.Errorf("row B age at admission = %q, want 24", rows[2][4])
	}
	// No labs: age at first admission is left blank.
	if rows[3][4] != "" || rows[3][5] != "0" {
		t.Errorf("row C = %v", rows[3])
	}

	labRows, err := f.GetRows(LabSummarySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(labRows) != 3 {
		t.Fatalf("expected header + 2 lab rows, got %d", len(labRows))
	}
	if labRows[1][0] != "CBC: RED BLOOD CELL COUNT" || labRows[1][2] != "3" || labRows[1][6] != "61.5" {
		t.Errorf("rbc row = %v", labRows[1])
	}
}
