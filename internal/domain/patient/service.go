package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Service answers the analysis queries against a repository. "Today" comes
// from the injected clock so results can be pinned to a reference date.
type Service struct {
	repo   PatientRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(repo PatientRepository, logger zerolog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logger, now: now}
}

// Today returns the reference date used for current ages.
func (s *Service) Today() time.Time {
	return DateOf(s.now())
}

func (s *Service) Patients(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

// NumOlderThan counts patients older than threshold today.
func (s *Service) NumOlderThan(ctx context.Context, threshold float64) (int, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("num older than: %w", err)
	}
	today := s.Today()
	n := NumOlderThan(threshold, patients, today)
	s.logger.Debug().
		Float64("threshold", threshold).
		Time("as_of", today).
		Int("patients", len(patients)).
		Int("count", n).
		Msg("num older than")
	return n, nil
}

// SickPatients returns the IDs of patients with a lab named labName beyond
// value in the direction given by cmp.
func (s *Service) SickPatients(ctx context.Context, labName, cmp string, value float64) ([]string, error) {
	c, err := ParseComparator(cmp)
	if err != nil {
		return nil, err
	}

	var ids []string
	if finder, ok := s.repo.(LabThresholdFinder); ok {
		ids, err = finder.FindByLabThreshold(ctx, labName, c, value)
		if err != nil {
			return nil, fmt.Errorf("sick patients: %w", err)
		}
	} else {
		patients, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("sick patients: %w", err)
		}
		ids, err = SickPatients(labName, cmp, value, patients)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debug().
		Str("lab", labName).
		Str("comparator", cmp).
		Float64("value", value).
		Int("matches", len(ids)).
		Msg("sick patients")
	return ids, nil
}

// CheckLabValues applies the lab predicate to a single patient.
func (s *Service) CheckLabValues(ctx context.Context, patientID, labName, cmp string, value float64) (bool, error) {
	if _, err := ParseComparator(cmp); err != nil {
		return false, err
	}
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return false, err
	}
	ok, err := CheckLabValues(p, labName, cmp, value)
	if err != nil {
		return false, err
	}
	if len(p.LabsNamed(labName)) == 0 {
		s.logger.Warn().
			Str("patient_id", patientID).
			Str("lab", labName).
			Msg("patient has no labs with this name; treating as not matching")
	}
	return ok, nil
}

// AgeAtAdmission returns the patient's age at their earliest lab encounter.
func (s *Service) AgeAtAdmission(ctx context.Context, patientID string) (int, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return 0, err
	}
	age, err := p.AgeAtFirstEncounter()
	if err != nil {
		return 0, fmt.Errorf("age at admission for %q: %w", patientID, err)
	}
	s.logger.Debug().Str("patient_id", patientID).Int("age", age).Msg("age at admission")
	return age, nil
}

// Import parses the patient and lab exports and replaces store's dataset with
// them. Nothing is written if either file fails to parse.
func Import(ctx context.Context, store PatientStore, patientPath, labPath string, logger zerolog.Logger) (int, error) {
	start := time.Now()
	patients, err := ParseData(patientPath, labPath)
	if err != nil {
		return 0, err
	}
	labs := 0
	for _, p := range patients {
		labs += len(p.Labs)
	}

	n, err := store.ReplaceAll(ctx, patients)
	if err != nil {
		return 0, err
	}
	logger.Info().
		Str("patient_file", patientPath).
		Str("lab_file", labPath).
		Int("patients", n).
		Int("labs", labs).
		Dur("elapsed", time.Since(start)).
		Msg("dataset imported")
	return n, nil
}
