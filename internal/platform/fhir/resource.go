package fhir

import "fmt"

// Coding is a code drawn from a code system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type Extension struct {
	URL         string `json:"url"`
	ValueString string `json:"valueString,omitempty"`
}

// Resource types produced by the exporters.
const (
	ResourcePatient     = "Patient"
	ResourceObservation = "Observation"
	ResourceEncounter   = "Encounter"
)

// Code systems used on exported resources.
const (
	ObservationCategorySystem = "http://terminology.hl7.org/CodeSystem/observation-category"
	RaceExtensionURL          = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-race"
	PovertyExtensionURL       = "urn:ehr-analysis:percent-below-poverty"
	PatientIDSystem           = "urn:ehr-analysis:patient-id"
)

// FormatReference renders a relative reference such as "Patient/123".
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}
