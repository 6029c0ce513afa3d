package patient

import "fmt"

// Comparator is a strict ordering test applied to a lab value.
type Comparator string

const (
	GreaterThan Comparator = ">"
	LessThan    Comparator = "<"
)

// ParseComparator accepts exactly "<" or ">".
func ParseComparator(s string) (Comparator, error) {
	switch c := Comparator(s); c {
	case GreaterThan, LessThan:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q, want \"<\" or \">\"", ErrInvalidComparator, s)
}

// Holds reports whether observed compares to threshold as c requires.
func (c Comparator) Holds(observed, threshold float64) bool {
	switch c {
	case GreaterThan:
		return observed > threshold
	case LessThan:
		return observed < threshold
	}
	return false
}

func (c Comparator) String() string { return string(c) }
