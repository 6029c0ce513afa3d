package patient

import "context"

// PatientRepository is read access to a loaded dataset.
type PatientRepository interface {
	List(ctx context.Context) ([]*Patient, error)
	// GetByID returns the first patient with the given ID, or ErrPatientNotFound.
	GetByID(ctx context.Context, id string) (*Patient, error)
}

// PatientStore replaces a backend's whole dataset. Either every patient and
// lab is stored or none is.
type PatientStore interface {
	ReplaceAll(ctx context.Context, patients []*Patient) (int, error)
}

// LabThresholdFinder is implemented by backends that can evaluate a lab
// threshold query themselves. Results are sorted, distinct patient IDs.
type LabThresholdFinder interface {
	FindByLabThreshold(ctx context.Context, labName string, cmp Comparator, value float64) ([]string, error)
}
