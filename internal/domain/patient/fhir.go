package patient

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/analysis/internal/platform/fhir"
)

// ToFHIR renders the patient as a FHIR R4 Patient resource.
func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": fhir.ResourcePatient,
		"id":           p.ID,
		"identifier": []fhir.Identifier{{
			Use:    "usual",
			System: fhir.PatientIDSystem,
			Value:  p.ID,
		}},
		"gender":    fhirGender(p.Gender),
		"birthDate": p.DateOfBirth.Format(DateLayout),
	}

	if p.MaritalStatus != "" {
		result["maritalStatus"] = fhir.CodeableConcept{Text: p.MaritalStatus}
	}
	if p.Language != "" {
		result["communication"] = []map[string]interface{}{
			{"language": fhir.CodeableConcept{Text: p.Language}},
		}
	}

	var ext []fhir.Extension
	if p.Race != "" {
		ext = append(ext, fhir.Extension{URL: fhir.RaceExtensionURL, ValueString: p.Race})
	}
	if p.PercentBelowPoverty != nil {
		ext = append(ext, fhir.Extension{
			URL:         fhir.PovertyExtensionURL,
			ValueString: fmt.Sprintf("%.2f", *p.PercentBelowPoverty),
		})
	}
	if len(ext) > 0 {
		result["extension"] = ext
	}
	return result
}

func fhirGender(g string) string {
	switch strings.ToLower(g) {
	case "male":
		return "male"
	case "female":
		return "female"
	case "other":
		return "other"
	}
	return "unknown"
}

// ObservationID derives a stable resource id from the lab's identifying fields,
// so repeated exports of the same file produce the same ids.
func (l *Lab) ObservationID() string {
	key := strings.Join([]string{
		l.PatientID, l.AdmissionID, l.Name,
		l.Date.Format(DateLayout), fmt.Sprintf("%g", l.Value),
	}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// ToFHIR renders the lab result as a FHIR R4 laboratory Observation.
func (l *Lab) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": fhir.ResourceObservation,
		"id":           l.ObservationID(),
		"status":       "final",
		"category": []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System:  fhir.ObservationCategorySystem,
				Code:    "laboratory",
				Display: "Laboratory",
			}},
		}},
		"code":              fhir.CodeableConcept{Text: l.Name},
		"subject":           fhir.Reference{Reference: fhir.FormatReference(fhir.ResourcePatient, l.PatientID)},
		"effectiveDateTime": l.Date.Format(DateLayout),
		"valueQuantity":     fhir.Quantity{Value: l.Value, Unit: l.Units},
	}
	if l.AdmissionID != "" {
		result["encounter"] = fhir.Reference{
			Reference: fhir.FormatReference(fhir.ResourceEncounter, l.PatientID+"-"+l.AdmissionID),
		}
	}
	return result
}
