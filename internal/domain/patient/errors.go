package patient

import "errors"

var (
	// ErrInvalidComparator is returned when a comparator other than "<" or ">"
	// is supplied to a lab threshold query.
	ErrInvalidComparator = errors.New("invalid comparator")
	// ErrPatientNotFound is returned when no patient has the requested ID.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrNoLabs is returned by age-at-admission when the patient has no lab results.
	ErrNoLabs = errors.New("patient has no lab results")
)
