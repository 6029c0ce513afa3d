package patient

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/analysis/internal/platform/flatfile"
)

func TestParseData(t *testing.T) {
	patients := loadFixture(t)
	require.Len(t, patients, 5)

	p := patients[0]
	assert.Equal(t, idEITS, p.ID)
	assert.Equal(t, date(1925, 3, 14), p.DateOfBirth)
	assert.Contains(t, genderOptions, p.Gender)
	assert.Contains(t, raceOptions, p.Race)
	assert.Contains(t, maritalOptions, p.MaritalStatus)
	assert.Equal(t, "English", p.Language)
	require.NotNil(t, p.PercentBelowPoverty)
	assert.InDelta(t, 12.51, *p.PercentBelowPoverty, 1e-9)

	require.Len(t, p.Labs, 3)
	for _, name := range p.LabNames() {
		assert.Contains(t, labNameOptions, name)
	}
	assert.Equal(t, "mmol/L", p.LabsNamed(labPotassium)[0].Units)
	assert.Equal(t, date(1950, 3, 3), p.LabsNamed(labCreatinine)[0].Date)
}

func TestParseData_KeepsFileOrder(t *testing.T) {
	patients := loadFixture(t)
	var ids []string
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{idEITS, id315A, id5UGO, idORM1, idUWO4}, ids)
}

func TestParseData_GroupsLabsInFileOrder(t *testing.T) {
	patients := loadFixture(t)
	p, err := FindPatient(idORM1, patients)
	require.NoError(t, err)

	rbc := p.LabsNamed(labRBC)
	require.Len(t, rbc, 2)
	assert.Equal(t, 20.5, rbc[0].Value)
	assert.Equal(t, 85.0, rbc[1].Value)
	assert.Empty(t, p.LabsNamed(labPotassium))
	for _, l := range p.Labs {
		assert.Equal(t, idORM1, l.PatientID)
	}
}

func TestParseData_EmptyPovertyIsNil(t *testing.T) {
	patients := loadFixture(t)
	p, err := FindPatient(idORM1, patients)
	require.NoError(t, err)
	assert.Nil(t, p.PercentBelowPoverty)
}

func TestParseData_OrphanLabsAreNotAttached(t *testing.T) {
	patients := loadFixture(t)
	for _, p := range patients {
		for _, l := range p.Labs {
			assert.NotEqual(t, idOrphanLab, l.PatientID)
		}
	}
}

func TestParseData_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	labs := filepath.Join("testdata", "LabData_Test.txt")
	patientsPath := filepath.Join("testdata", "PatientData_Test.txt")

	_, err := ParseData(filepath.Join(dir, "nope.txt"), labs)
	var fileErr *flatfile.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = ParseData(patientsPath, filepath.Join(dir, "nope.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseData_MalformedRowsFailTheWholeParse(t *testing.T) {
	goodPatients := "h1\th2\th3\th4\th5\th6\th7\n" +
		"P1\tMale\t1970-01-01\tWhite\tSingle\tEnglish\t10.5\n"
	goodLabs := "h1\th2\th3\th4\th5\th6\n" +
		"P1\t1\tCBC\t4.5\tm/cumm\t1990-01-01 00:00:00\n"

	tests := []struct {
		name     string
		patients string
		labs     string
		line     int
	}{
		{
			name:     "bad date of birth",
			patients: goodPatients + "P2\tFemale\t19-01-01\tWhite\tSingle\tEnglish\t1\n",
			labs:     goodLabs,
			line:     3,
		},
		{
			name:     "bad poverty",
			patients: goodPatients + "P2\tFemale\t1980-01-01\tWhite\tSingle\tEnglish\tabc\n",
			labs:     goodLabs,
			line:     3,
		},
		{
			name:     "short patient row",
			patients: goodPatients + "P2\tFemale\t1980-01-01\n",
			labs:     goodLabs,
			line:     3,
		},
		{
			name:     "bad lab value",
			patients: goodPatients,
			labs:     goodLabs + "P1\t2\tCBC\thigh\tm/cumm\t1990-01-01\n",
			line:     3,
		},
		{
			name:     "bad lab date",
			patients: goodPatients,
			labs:     goodLabs + "P1\t2\tCBC\t1.0\tm/cumm\tyesterday\n",
			line:     3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseData(writeTemp(t, "p.txt", tt.patients), writeTemp(t, "l.txt", tt.labs))
			require.Error(t, err)
			var malformed *flatfile.MalformedRecordError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.line, malformed.Line)
		})
	}
}

func TestPatientFromRow(t *testing.T) {
	p, err := PatientFromRow([]string{"X", "Female", "2000-02-29 00:00:00", "Asian", "Married", "Spanish", ""})
	require.NoError(t, err)
	assert.Equal(t, "X", p.ID)
	assert.Equal(t, date(2000, 2, 29), p.DateOfBirth)
	assert.Nil(t, p.PercentBelowPoverty)
	assert.Empty(t, p.Labs)

	_, err = PatientFromRow([]string{"X"})
	assert.Error(t, err)
}

func TestLabFromRow(t *testing.T) {
	l, err := LabFromRow([]string{"X", "3", labRBC, "4.75", "m/cumm", "2010-10-10 10:10:10.000"})
	require.NoError(t, err)
	assert.Equal(t, &Lab{
		PatientID:   "X",
		AdmissionID: "3",
		Name:        labRBC,
		Value:       4.75,
		Units:       "m/cumm",
		Date:        date(2010, 10, 10),
	}, l)
}
