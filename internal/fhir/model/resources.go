package model

// Patient is the mandatory person-record resource.
type Patient struct {
	ResourceType  string           `json:"resourceType"`
	ID            string           `json:"id,omitempty"`
	Identifier    []Identifier     `json:"identifier,omitempty"`
	Name          []HumanName      `json:"name,omitempty"`
	Gender        string           `json:"gender,omitempty"`
	BirthDate     string           `json:"birthDate,omitempty"`
	Address       []Address        `json:"address,omitempty"`
	Telecom       []ContactPoint   `json:"telecom,omitempty"`
	MaritalStatus *CodeableConcept `json:"maritalStatus,omitempty"`
}

// Encounter is the visit record.
type Encounter struct {
	ResourceType    string              `json:"resourceType"`
	ID              string              `json:"id,omitempty"`
	Identifier      []Identifier        `json:"identifier,omitempty"`
	Status          string              `json:"status,omitempty"`
	Class           *Coding             `json:"class,omitempty"`
	Type            []CodeableConcept   `json:"type,omitempty"`
	Subject         *Reference          `json:"subject,omitempty"`
	Participant     []EncounterContact  `json:"participant,omitempty"`
	Period          *Period             `json:"period,omitempty"`
	Location        []EncounterLocation `json:"location,omitempty"`
	ServiceProvider *Reference          `json:"serviceProvider,omitempty"`
}

type EncounterContact struct {
	Type       []CodeableConcept `json:"type,omitempty"`
	Individual *Reference        `json:"individual,omitempty"`
}

type EncounterLocation struct {
	Location Reference `json:"location"`
}

// ServiceRequest is the order record.
type ServiceRequest struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Identifier   []Identifier     `json:"identifier,omitempty"`
	Status       string           `json:"status,omitempty"`
	Intent       string           `json:"intent,omitempty"`
	Priority     string           `json:"priority,omitempty"`
	Code         *CodeableConcept `json:"code,omitempty"`
	Subject      *Reference       `json:"subject,omitempty"`
	AuthoredOn   string           `json:"authoredOn,omitempty"`
	Requester    *Reference       `json:"requester,omitempty"`
}

// Observation is the result record.
type Observation struct {
	ResourceType      string           `json:"resourceType"`
	ID                string           `json:"id,omitempty"`
	Status            string           `json:"status,omitempty"`
	Code              *CodeableConcept `json:"code,omitempty"`
	Subject           *Reference       `json:"subject,omitempty"`
	EffectiveDateTime string           `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity        `json:"valueQuantity,omitempty"`
	ValueString       string           `json:"valueString,omitempty"`
	ReferenceRange    []ReferenceRange `json:"referenceRange,omitempty"`
	Interpretation    []CodeableConcept `json:"interpretation,omitempty"`
}

type ReferenceRange struct {
	Text string `json:"text,omitempty"`
}
