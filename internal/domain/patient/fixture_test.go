package patient

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Reference date for the fixture's expected ages.
var fixtureAsOf = date(2022, 11, 1)

const (
	idEITS = "EITSIO5D-YZF2-KYU2-QYVB-0CYV1AQ4AWH3"
	id315A = "315AHQQH-Y4MW-MDY4-UDYX-ESTMBGKASAGY"
	id5UGO = "5UGO1HF9-QFVJ-PW9E-WMS5-SLCOUGK8NAZ7"
	idORM1 = "ORM1FW1N-BYOI-J3ZA-0PLB-MJ9SNP3H1WFF"
	idUWO4 = "UWO429L9-E60B-LJEO-M1U2-NHJSBHCSOZDD"
	// Present only in the lab file.
	idOrphanLab = "9VWI26ZY-R196-J48V-TLUK-E045NMVQ0KYG"

	labPotassium  = "METABOLIC: POTASSIUM"
	labCreatinine = "METABOLIC: CREATININE"
	labRBC        = "CBC: RED BLOOD CELL COUNT"
)

var (
	genderOptions  = []string{"Male", "Female"}
	raceOptions    = []string{"Unknown", "African American", "Asian", "White"}
	maritalOptions = []string{"Married", "Single", "Divorced", "Unknown", "Separated"}
	labNameOptions = []string{labPotassium, labCreatinine, labRBC}
)

func loadFixture(t *testing.T) []*Patient {
	t.Helper()
	patients, err := ParseData(
		filepath.Join("testdata", "PatientData_Test.txt"),
		filepath.Join("testdata", "LabData_Test.txt"),
	)
	require.NoError(t, err)
	return patients
}
