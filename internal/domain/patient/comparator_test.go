package patient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparator(t *testing.T) {
	c, err := ParseComparator(">")
	require.NoError(t, err)
	assert.Equal(t, GreaterThan, c)

	c, err = ParseComparator("<")
	require.NoError(t, err)
	assert.Equal(t, LessThan, c)
}

func TestParseComparator_Invalid(t *testing.T) {
	for _, in := range []string{">=", "<=", "wrong input", "< ", " >", "", "=", "gt"} {
		_, err := ParseComparator(in)
		assert.True(t, errors.Is(err, ErrInvalidComparator), "input %q", in)
	}
}

func TestComparator_Holds(t *testing.T) {
	assert.True(t, GreaterThan.Holds(5, 4))
	assert.False(t, GreaterThan.Holds(4, 4))
	assert.True(t, LessThan.Holds(3, 4))
	assert.False(t, LessThan.Holds(4, 4))
	assert.False(t, Comparator("!").Holds(1, 2))
}
