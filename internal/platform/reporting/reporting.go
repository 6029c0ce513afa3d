package reporting

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ehr/analysis/internal/domain/patient"
)

// ErrMeasureNotFound is returned when no predefined measure has the requested ID.
var ErrMeasureNotFound = errors.New("measure not found")

// MeasureDefinition defines a reporting measure evaluated over a loaded dataset.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	evaluate func(patients []*patient.Patient, asOf time.Time) []map[string]interface{}
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	AsOf        string                   `json:"as_of"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// LabMeasure summarises every result recorded under one lab name.
type LabMeasure struct {
	Name     string  `json:"lab_name"`
	Units    string  `json:"units"`
	Count    int     `json:"count"`
	Patients int     `json:"patients"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count",
		Name:        "Patient Count",
		Description: "Total number of patients and lab results in the dataset",
		evaluate:    patientCount,
	},
	{
		ID:          "patients-by-gender",
		Name:        "Patients by Gender",
		Description: "Number of patients and mean age grouped by recorded gender",
		evaluate:    patientsByGender,
	},
	{
		ID:          "lab-summary",
		Name:        "Lab Summary",
		Description: "Result count, distinct patients and value range per lab name",
		evaluate:    labSummary,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Evaluate runs the measure with the given ID against patients.
func Evaluate(id string, patients []*patient.Patient, asOf time.Time) (*MeasureReport, error) {
	m := FindMeasure(id)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMeasureNotFound, id)
	}
	results := m.evaluate(patients, asOf)
	if results == nil {
		results = []map[string]interface{}{}
	}
	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		AsOf:        asOf.Format(patient.DateLayout),
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	}, nil
}

// LabMeasures returns one summary per lab name, sorted by name. Units are
// taken from the first result seen for each name.
func LabMeasures(patients []*patient.Patient) []LabMeasure {
	byName := make(map[string]*LabMeasure)
	seen := make(map[string]map[string]struct{})
	sums := make(map[string]float64)

	for _, p := range patients {
		for _, l := range p.Labs {
			m, ok := byName[l.Name]
			if !ok {
				m = &LabMeasure{Name: l.Name, Units: l.Units, Min: l.Value, Max: l.Value}
				byName[l.Name] = m
				seen[l.Name] = make(map[string]struct{})
			}
			m.Count++
			if l.Value < m.Min {
				m.Min = l.Value
			}
			if l.Value > m.Max {
				m.Max = l.Value
			}
			sums[l.Name] += l.Value
			seen[l.Name][p.ID] = struct{}{}
		}
	}

	out := make([]LabMeasure, 0, len(byName))
	for name, m := range byName {
		m.Patients = len(seen[name])
		m.Mean = sums[name] / float64(m.Count)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func patientCount(patients []*patient.Patient, _ time.Time) []map[string]interface{} {
	labs := 0
	for _, p := range patients {
		labs += len(p.Labs)
	}
	return []map[string]interface{}{{"patients": len(patients), "labs": labs}}
}

func patientsByGender(patients []*patient.Patient, asOf time.Time) []map[string]interface{} {
	type group struct {
		count  int
		ageSum int
	}
	groups := make(map[string]*group)
	for _, p := range patients {
		key := strings.ToLower(p.Gender)
		if key == "" {
			key = "unknown"
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.count++
		g.ageSum += p.Age(asOf)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		results = append(results, map[string]interface{}{
			"gender":   k,
			"total":    g.count,
			"mean_age": float64(g.ageSum) / float64(g.count),
		})
	}
	return results
}

func labSummary(patients []*patient.Patient, _ time.Time) []map[string]interface{} {
	measures := LabMeasures(patients)
	results := make([]map[string]interface{}, 0, len(measures))
	for _, m := range measures {
		results = append(results, map[string]interface{}{
			"lab_name": m.Name,
			"units":    m.Units,
			"count":    m.Count,
			"patients": m.Patients,
			"min":      m.Min,
			"max":      m.Max,
			"mean":     m.Mean,
		})
	}
	return results
}
