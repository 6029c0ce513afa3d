package patient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumOlderThan(t *testing.T) {
	patients := loadFixture(t)

	assert.Equal(t, 5, NumOlderThan(20, patients, fixtureAsOf))
	assert.Equal(t, 4, NumOlderThan(52, patients, fixtureAsOf))
	assert.Equal(t, 3, NumOlderThan(86, patients, fixtureAsOf))
	assert.Equal(t, 2, NumOlderThan(92, patients, fixtureAsOf))
	assert.Equal(t, 0, NumOlderThan(97, patients, fixtureAsOf))
}

func TestNumOlderThan_StrictlyGreater(t *testing.T) {
	patients := loadFixture(t)
	// ORM1FW1N turns 62 on the reference date.
	assert.Equal(t, 4, NumOlderThan(61.5, patients, fixtureAsOf))
	assert.Equal(t, 3, NumOlderThan(62, patients, fixtureAsOf))
}

func TestNumOlderThan_Monotonic(t *testing.T) {
	patients := loadFixture(t)
	prev := NumOlderThan(-1, patients, fixtureAsOf)
	assert.Equal(t, len(patients), prev)
	for threshold := 0.0; threshold <= 120; threshold += 0.5 {
		n := NumOlderThan(threshold, patients, fixtureAsOf)
		assert.LessOrEqual(t, n, prev, "threshold %v", threshold)
		prev = n
	}
}

func TestNumOlderThan_Empty(t *testing.T) {
	assert.Equal(t, 0, NumOlderThan(0, nil, fixtureAsOf))
}

func TestSickPatients(t *testing.T) {
	patients := loadFixture(t)

	ids, err := SickPatients(labRBC, "<", 80, patients)
	require.NoError(t, err)
	assert.Equal(t, []string{id5UGO, idEITS, idORM1}, ids)

	ids, err = SickPatients(labCreatinine, ">", 90, patients)
	require.NoError(t, err)
	assert.Equal(t, []string{id315A, idEITS, idORM1}, ids)

	ids, err = SickPatients(labPotassium, ">", 30, patients)
	require.NoError(t, err)
	assert.Equal(t, []string{idEITS, idUWO4}, ids)
}

func TestSickPatients_BoundaryIsExcluded(t *testing.T) {
	patients := loadFixture(t)
	// UWO429L9 has an RBC of exactly 80.0.
	ids, err := SickPatients(labRBC, ">", 80, patients)
	require.NoError(t, err)
	assert.Equal(t, []string{id315A, idORM1}, ids)
}

func TestSickPatients_UnknownLab(t *testing.T) {
	patients := loadFixture(t)
	ids, err := SickPatients("URINALYSIS: PH", ">", 0, patients)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSickPatients_InvalidComparator(t *testing.T) {
	patients := loadFixture(t)
	for _, cmp := range []string{">=", "wrong input", "< "} {
		_, err := SickPatients(labRBC, cmp, 10, patients)
		assert.True(t, errors.Is(err, ErrInvalidComparator), "comparator %q", cmp)
	}
	// Fails before scanning, even with nothing to scan.
	_, err := SickPatients(labRBC, "==", 10, nil)
	assert.True(t, errors.Is(err, ErrInvalidComparator))
}

func TestSickPatients_DuplicatePatientRows(t *testing.T) {
	lab := &Lab{PatientID: "A", Name: labRBC, Value: 1}
	a1 := NewPatient(Patient{ID: "A"}, []*Lab{lab})
	a2 := NewPatient(Patient{ID: "A"}, []*Lab{lab})

	ids, err := SickPatients(labRBC, "<", 2, []*Patient{a1, a2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)
}

func TestCheckLabValues(t *testing.T) {
	patients := loadFixture(t)
	p, err := FindPatient(idORM1, patients)
	require.NoError(t, err)

	// One of two RBC results is below 80.
	ok, err := CheckLabValues(p, labRBC, "<", 80)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckLabValues(p, labRBC, ">", 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

// A patient with no labs under the queried name is treated as not matching
// rather than as an error.
func TestCheckLabValues_NoLabsOfThatName(t *testing.T) {
	patients := loadFixture(t)
	p, err := FindPatient(idORM1, patients)
	require.NoError(t, err)
	require.Empty(t, p.LabsNamed(labPotassium))

	ok, err := CheckLabValues(p, labPotassium, ">", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CheckLabValues(p, labPotassium, "<", 1e9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckLabValues_InvalidComparator(t *testing.T) {
	p := NewPatient(Patient{ID: "A"}, nil)
	_, err := CheckLabValues(p, labRBC, "=>", 1)
	assert.True(t, errors.Is(err, ErrInvalidComparator))
}

func TestCheckLabValues_PatientWithoutIndex(t *testing.T) {
	p := &Patient{ID: "A", Labs: []*Lab{{PatientID: "A", Name: labRBC, Value: 3}}}
	ok, err := CheckLabValues(p, labRBC, ">", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAgeAtAdmission(t *testing.T) {
	patients := loadFixture(t)

	tests := map[string]int{
		idEITS: 6,
		id315A: 15,
		id5UGO: 18,
		idORM1: 7,
		idUWO4: 24,
	}
	for id, want := range tests {
		got, err := AgeAtAdmission(id, patients)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
	}
}

func TestAgeAtAdmission_Idempotent(t *testing.T) {
	patients := loadFixture(t)
	first, err := AgeAtAdmission(id5UGO, patients)
	require.NoError(t, err)
	second, err := AgeAtAdmission(id5UGO, patients)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAgeAtAdmission_NotFound(t *testing.T) {
	patients := loadFixture(t)
	for _, id := range []string{"aaa", idOrphanLab, idEITS + " ", ""} {
		_, err := AgeAtAdmission(id, patients)
		assert.True(t, errors.Is(err, ErrPatientNotFound), "id %q", id)
	}
}

func TestAgeAtAdmission_NoLabs(t *testing.T) {
	patients := []*Patient{NewPatient(Patient{ID: "A", DateOfBirth: date(1990, 1, 1)}, nil)}
	_, err := AgeAtAdmission("A", patients)
	assert.True(t, errors.Is(err, ErrNoLabs))
}

func TestAgeAtAdmission_FirstMatchWins(t *testing.T) {
	first := NewPatient(Patient{ID: "A", DateOfBirth: date(1990, 1, 1)},
		[]*Lab{{PatientID: "A", Date: date(2000, 1, 1)}})
	second := NewPatient(Patient{ID: "A", DateOfBirth: date(1950, 1, 1)},
		[]*Lab{{PatientID: "A", Date: date(2000, 1, 1)}})

	age, err := AgeAtAdmission("A", []*Patient{first, second})
	require.NoError(t, err)
	assert.Equal(t, 10, age)
}

func TestPatient_AgeAtFirstEncounter_UsesEarliestLab(t *testing.T) {
	p := NewPatient(Patient{ID: "A", DateOfBirth: date(1980, 2, 29)}, []*Lab{
		{Name: labRBC, Date: date(2010, 1, 1)},
		{Name: labRBC, Date: date(2004, 2, 28)},
		{Name: labRBC, Date: date(2004, 3, 1)},
	})
	age, err := p.AgeAtFirstEncounter()
	require.NoError(t, err)
	assert.Equal(t, 23, age)
}
