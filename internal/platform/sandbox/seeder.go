// Package sandbox generates synthetic patient and lab exports in the
// tab-delimited format read by the analysis commands. Output is reproducible
// for a fixed seed, which makes it suitable for demos and load tests.
package sandbox

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ehr/analysis/internal/domain/patient"
	"github.com/ehr/analysis/internal/platform/flatfile"
)

// Default file names written by WriteFiles.
const (
	PatientFileName = "PatientData.txt"
	LabFileName     = "LabData.txt"
)

// timestampLayout is the datetime format of both exports.
const timestampLayout = "2006-01-02 15:04:05.000"

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	PatientCount   int       `json:"patientCount"`
	LabsPerPatient int       `json:"labsPerPatient"`
	Seed           uint64    `json:"seed"`
	BirthStart     time.Time `json:"birthStart"`
	// BirthEnd bounds both birth dates and lab dates.
	BirthEnd time.Time `json:"birthEnd"`
}

// DefaultSeedConfig returns a SeedConfig matching the historical export:
// births between 1920 and 2003.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:   100,
		LabsPerPatient: 5,
		BirthStart:     time.Date(1920, 1, 1, 0, 30, 0, 0, time.UTC),
		BirthEnd:       time.Date(2003, 1, 1, 0, 30, 0, 0, time.UTC),
	}
}

// Validate checks the config for values the generator cannot honour.
func (c SeedConfig) Validate() error {
	if c.PatientCount < 0 {
		return fmt.Errorf("patient count must not be negative, got %d", c.PatientCount)
	}
	if c.LabsPerPatient < 0 {
		return fmt.Errorf("labs per patient must not be negative, got %d", c.LabsPerPatient)
	}
	if !c.BirthEnd.After(c.BirthStart) {
		return fmt.Errorf("birth end %s must be after birth start %s",
			c.BirthEnd.Format(patient.DateLayout), c.BirthStart.Format(patient.DateLayout))
	}
	return nil
}

// SeedResult summarizes the output of a seed operation.
type SeedResult struct {
	Patients int           `json:"patients"`
	Labs     int           `json:"labs"`
	Duration time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Vocabularies
// ---------------------------------------------------------------------------

var (
	genders         = []string{"Male", "Female"}
	races           = []string{"Unknown", "African American", "Asian", "White"}
	maritalStatuses = []string{"Married", "Single", "Divorced", "Unknown", "Separated"}
	languages       = []string{"English", "Spanish", "Unknown", "Icelandic"}

	labNames = []string{"METABOLIC: POTASSIUM", "METABOLIC: CREATININE", "CBC: RED BLOOD CELL COUNT"}
	// labUnits[i] is the unit of labNames[i].
	labUnits = []string{"mmol/L", "mg/dL", "m/cumm"}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces individual records from a seeded faker.
type DataGenerator struct {
	faker      *gofakeit.Faker
	birthStart time.Time
	birthEnd   time.Time
}

// NewDataGenerator creates a generator. A zero seed draws a random one.
func NewDataGenerator(seed uint64, birthStart, birthEnd time.Time) *DataGenerator {
	return &DataGenerator{
		faker:      gofakeit.New(seed),
		birthStart: birthStart,
		birthEnd:   birthEnd,
	}
}

// GeneratePatient returns random demographics. The date of birth keeps its
// time of day; it is written to the export as a full timestamp.
func (g *DataGenerator) GeneratePatient() patient.Patient {
	poverty := g.percentage()
	return patient.Patient{
		ID:                  strings.ToUpper(g.faker.UUID()),
		Gender:              g.faker.RandomString(genders),
		DateOfBirth:         g.dateBetween(g.birthStart, g.birthEnd),
		Race:                g.faker.RandomString(races),
		MaritalStatus:       g.faker.RandomString(maritalStatuses),
		Language:            g.faker.RandomString(languages),
		PercentBelowPoverty: &poverty,
	}
}

// GenerateLab returns a random lab for p, dated between p's birth and the
// configured birth end so the patient's age at the lab is never negative.
func (g *DataGenerator) GenerateLab(p patient.Patient) *patient.Lab {
	i := g.faker.Number(0, len(labNames)-1)
	return &patient.Lab{
		PatientID:   p.ID,
		AdmissionID: strconv.Itoa(g.faker.Number(1, 4)),
		Name:        labNames[i],
		Value:       g.percentage(),
		Units:       labUnits[i],
		Date:        g.dateBetween(p.DateOfBirth, g.birthEnd),
	}
}

// percentage is uniform in [0.01, 99.99] rounded to two places.
func (g *DataGenerator) percentage() float64 {
	return math.Round(g.faker.Float64Range(0.01, 99.99)*100) / 100
}

func (g *DataGenerator) dateBetween(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	return g.faker.DateRange(start, end).UTC().Truncate(time.Second)
}

// ---------------------------------------------------------------------------
// Seeder orchestrates full data generation
// ---------------------------------------------------------------------------

// Seeder generates a complete dataset and writes it out in export format.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
	mu        sync.RWMutex
	patients  []*patient.Patient
}

// NewSeeder creates a new Seeder with the given config.
func NewSeeder(config SeedConfig) *Seeder {
	return &Seeder{
		generator: NewDataGenerator(config.Seed, config.BirthStart, config.BirthEnd),
		config:    config,
	}
}

// Generate replaces any previously generated data with a fresh dataset.
func (s *Seeder) Generate() (*SeedResult, error) {
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &SeedResult{}
	s.patients = make([]*patient.Patient, 0, s.config.PatientCount)
	for i := 0; i < s.config.PatientCount; i++ {
		p := s.generator.GeneratePatient()
		labs := make([]*patient.Lab, 0, s.config.LabsPerPatient)
		for j := 0; j < s.config.LabsPerPatient; j++ {
			labs = append(labs, s.generator.GenerateLab(p))
		}
		s.patients = append(s.patients, patient.NewPatient(p, labs))
		result.Labs += len(labs)
	}
	result.Patients = len(s.patients)
	result.Duration = time.Since(start)
	return result, nil
}

// Patients returns the generated patients in generation order.
func (s *Seeder) Patients() []*patient.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*patient.Patient(nil), s.patients...)
}

// WritePatientFile writes the patient export, header first.
func (s *Seeder) WritePatientFile(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fw := flatfile.NewWriter(w, patient.PatientHeader)
	for _, p := range s.patients {
		poverty := ""
		if p.PercentBelowPoverty != nil {
			poverty = strconv.FormatFloat(*p.PercentBelowPoverty, 'f', 2, 64)
		}
		row := []string{
			p.ID,
			p.Gender,
			p.DateOfBirth.Format(timestampLayout),
			p.Race,
			p.MaritalStatus,
			p.Language,
			poverty,
		}
		if err := fw.Write(row); err != nil {
			return fmt.Errorf("write patient %s: %w", p.ID, err)
		}
	}
	return fw.Flush()
}

// WriteLabFile writes the lab export, header first, grouped by patient.
func (s *Seeder) WriteLabFile(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fw := flatfile.NewWriter(w, patient.LabHeader)
	for _, p := range s.patients {
		for _, l := range p.Labs {
			row := []string{
				l.PatientID,
				l.AdmissionID,
				l.Name,
				strconv.FormatFloat(l.Value, 'f', 2, 64),
				l.Units,
				l.Date.Format(timestampLayout),
			}
			if err := fw.Write(row); err != nil {
				return fmt.Errorf("write lab for %s: %w", p.ID, err)
			}
		}
	}
	return fw.Flush()
}

// WriteFiles writes both exports into dir, creating it if needed, and returns
// their paths.
func (s *Seeder) WriteFiles(dir string) (patientPath, labPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	patientPath = filepath.Join(dir, PatientFileName)
	labPath = filepath.Join(dir, LabFileName)
	if err := writeFile(patientPath, s.WritePatientFile); err != nil {
		return "", "", err
	}
	if err := writeFile(labPath, s.WriteLabFile); err != nil {
		return "", "", err
	}
	return patientPath, labPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
