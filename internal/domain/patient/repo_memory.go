package patient

import (
	"context"
	"sync"
)

// MemoryRepo keeps a dataset in process memory.
type MemoryRepo struct {
	mu       sync.RWMutex
	patients []*Patient
}

// NewMemoryRepo returns an in-memory repository holding patients.
func NewMemoryRepo(patients []*Patient) *MemoryRepo {
	return &MemoryRepo{patients: patients}
}

func (r *MemoryRepo) List(_ context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, len(r.patients))
	copy(out, r.patients)
	return out, nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return FindPatient(id, r.patients)
}

func (r *MemoryRepo) ReplaceAll(_ context.Context, patients []*Patient) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients = append([]*Patient(nil), patients...)
	return len(patients), nil
}
