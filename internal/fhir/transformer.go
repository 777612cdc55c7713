package fhir

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"hl7bridge/internal/fhir/model"
	"hl7bridge/internal/hl7"
	dErrors "hl7bridge/pkg/domain-errors"
)

const (
	sysPatientID   = "http://hospital.example.org/patient-id"
	sysMRN         = "http://hospital.example.org/mrn"
	sysVisitNumber = "http://hospital.example.org/visit-number"
	sysPlacerOrder = "http://hospital.example.org/placer-order"
	sysFillerOrder = "http://hospital.example.org/filler-order"
	sysLocalCodes  = "http://hospital.example.org/codes"
)

// Transformer maps parsed clinical data into FHIR R4 resources. Output order
// is deterministic: Patient first, then Encounter, then orders and
// observations preserving source document order.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform emits zero or one resource per present sub-structure. Absent
// optional source data yields no resource of that kind, never an empty
// placeholder.
func (t *Transformer) Transform(parsed *hl7.ParsedMessage, correlationID string, now time.Time) ([]Resource, error) {
	if parsed == nil {
		return nil, dErrors.New(dErrors.CodeTransform, "nothing to transform")
	}

	var resources []Resource

	if parsed.Patient != nil {
		r, err := t.mapPatient(parsed.Patient, correlationID, now)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	if parsed.Visit != nil {
		r, err := t.mapEncounter(parsed, correlationID, now)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	for _, order := range parsed.Orders {
		r, err := t.mapOrder(order, parsed, correlationID, now)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	for _, obs := range parsed.Observations {
		r, err := t.mapObservation(obs, parsed, correlationID, now)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}

	return resources, nil
}

func (t *Transformer) mapPatient(data *hl7.PatientData, correlationID string, now time.Time) (Resource, error) {
	patient := model.Patient{
		ResourceType: string(TypePatient),
		ID:           data.PatientID,
		Gender:       mapGender(data.Gender),
	}
	if data.PatientID != "" {
		patient.Identifier = append(patient.Identifier, model.Identifier{
			System: sysPatientID, Value: data.PatientID,
		})
	}
	if data.MedicalRecordNumber != "" {
		patient.Identifier = append(patient.Identifier, model.Identifier{
			System: sysMRN, Value: data.MedicalRecordNumber,
		})
	}

	name := model.HumanName{Use: "official", Family: data.FamilyName}
	if data.GivenName != "" {
		name.Given = append(name.Given, data.GivenName)
	}
	if data.MiddleName != "" {
		name.Given = append(name.Given, data.MiddleName)
	}
	if name.Family != "" || len(name.Given) > 0 {
		patient.Name = []model.HumanName{name}
	}

	if !data.DateOfBirth.IsZero() {
		patient.BirthDate = data.DateOfBirth.Format("2006-01-02")
	}
	if data.Street != "" || data.City != "" || data.State != "" || data.PostalCode != "" {
		addr := model.Address{
			Use:        "home",
			City:       data.City,
			State:      data.State,
			PostalCode: data.PostalCode,
		}
		if data.Street != "" {
			addr.Line = []string{data.Street}
		}
		patient.Address = []model.Address{addr}
	}
	if data.PhoneNumber != "" {
		patient.Telecom = []model.ContactPoint{{System: "phone", Use: "home", Value: data.PhoneNumber}}
	}
	if data.MaritalStatus != "" {
		patient.MaritalStatus = &model.CodeableConcept{
			Coding: []model.Coding{{System: "http://terminology.hl7.org/CodeSystem/v3-MaritalStatus", Code: data.MaritalStatus}},
		}
	}

	return t.seal(TypePatient, patient.ID, patient, correlationID, now)
}

func (t *Transformer) mapEncounter(parsed *hl7.ParsedMessage, correlationID string, now time.Time) (Resource, error) {
	visit := parsed.Visit
	encounter := model.Encounter{
		ResourceType: string(TypeEncounter),
		ID:           visit.VisitNumber,
		Status:       "finished",
		Class:        mapEncounterClass(visit.PatientClass),
	}
	if visit.VisitNumber != "" {
		encounter.Identifier = []model.Identifier{{System: sysVisitNumber, Value: visit.VisitNumber}}
	}
	if encounter.ID == "" {
		encounter.ID = uuid.New().String()
	}
	if parsed.Patient != nil && parsed.Patient.PatientID != "" {
		encounter.Subject = &model.Reference{Reference: "Patient/" + parsed.Patient.PatientID}
	}
	if visit.AttendingDoctor != "" {
		encounter.Participant = []model.EncounterContact{{
			Type: []model.CodeableConcept{{
				Coding: []model.Coding{{System: "http://terminology.hl7.org/CodeSystem/v3-ParticipationType", Code: "ATND"}},
			}},
			Individual: &model.Reference{Display: visit.AttendingDoctor},
		}}
	}

	period := model.Period{}
	if !visit.AdmitTime.IsZero() {
		period.Start = visit.AdmitTime.UTC().Format(time.RFC3339)
	}
	if !visit.DischargeTime.IsZero() {
		period.End = visit.DischargeTime.UTC().Format(time.RFC3339)
	}
	if period.Start != "" || period.End != "" {
		encounter.Period = &period
	}

	if location := formatLocation(visit); location != "" {
		encounter.Location = []model.EncounterLocation{{Location: model.Reference{Display: location}}}
	}
	if visit.Facility != "" {
		encounter.ServiceProvider = &model.Reference{Display: visit.Facility}
	}

	return t.seal(TypeEncounter, encounter.ID, encounter, correlationID, now)
}

func (t *Transformer) mapOrder(order hl7.OrderData, parsed *hl7.ParsedMessage, correlationID string, now time.Time) (Resource, error) {
	id := order.PlacerOrderNumber
	if id == "" {
		id = uuid.New().String()
	}
	request := model.ServiceRequest{
		ResourceType: string(TypeServiceRequest),
		ID:           id,
		Status:       mapOrderStatus(order.OrderStatus),
		Intent:       "order",
		Priority:     mapOrderPriority(order.Priority),
	}
	if order.PlacerOrderNumber != "" {
		request.Identifier = append(request.Identifier, model.Identifier{System: sysPlacerOrder, Value: order.PlacerOrderNumber})
	}
	if order.FillerOrderNumber != "" {
		request.Identifier = append(request.Identifier, model.Identifier{System: sysFillerOrder, Value: order.FillerOrderNumber})
	}
	if order.OrderCode != "" || order.OrderName != "" {
		request.Code = &model.CodeableConcept{
			Coding: []model.Coding{{System: sysLocalCodes, Code: order.OrderCode, Display: order.OrderName}},
			Text:   order.OrderName,
		}
	}
	if parsed.Patient != nil && parsed.Patient.PatientID != "" {
		request.Subject = &model.Reference{Reference: "Patient/" + parsed.Patient.PatientID}
	}
	if !order.OrderTime.IsZero() {
		request.AuthoredOn = order.OrderTime.UTC().Format(time.RFC3339)
	}
	if order.OrderingProvider != "" {
		request.Requester = &model.Reference{Display: order.OrderingProvider}
	}

	return t.seal(TypeServiceRequest, id, request, correlationID, now)
}

func (t *Transformer) mapObservation(obs hl7.ObservationData, parsed *hl7.ParsedMessage, correlationID string, now time.Time) (Resource, error) {
	id := obs.SetID
	if id == "" {
		id = uuid.New().String()
	}
	observation := model.Observation{
		ResourceType: string(TypeObservation),
		ID:           id,
		Status:       mapObservationStatus(obs.Status),
	}
	if obs.ObservationCode != "" || obs.ObservationName != "" {
		observation.Code = &model.CodeableConcept{
			Coding: []model.Coding{{System: "http://loinc.org", Code: obs.ObservationCode, Display: obs.ObservationName}},
			Text:   obs.ObservationName,
		}
	}
	if parsed.Patient != nil && parsed.Patient.PatientID != "" {
		observation.Subject = &model.Reference{Reference: "Patient/" + parsed.Patient.PatientID}
	}
	if !obs.ObservedAt.IsZero() {
		observation.EffectiveDateTime = obs.ObservedAt.UTC().Format(time.RFC3339)
	}
	if obs.ValueType == "NM" && obs.Value != "" {
		observation.ValueQuantity = &model.Quantity{Value: obs.Value, Unit: obs.Units}
	} else {
		observation.ValueString = obs.Value
	}
	if obs.ReferenceRange != "" {
		observation.ReferenceRange = []model.ReferenceRange{{Text: obs.ReferenceRange}}
	}
	if obs.AbnormalFlags != "" {
		observation.Interpretation = []model.CodeableConcept{{
			Coding: []model.Coding{{System: "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation", Code: obs.AbnormalFlags}},
		}}
	}

	return t.seal(TypeObservation, id, observation, correlationID, now)
}

// seal serializes the typed resource and wraps it in the immutable envelope.
func (t *Transformer) seal(kind ResourceType, id string, content any, correlationID string, now time.Time) (Resource, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return Resource{}, dErrors.Wrap(dErrors.CodeTransform, "serialize "+string(kind)+" resource", err)
	}
	return Resource{
		Type:          kind,
		ID:            id,
		Content:       payload,
		Category:      kind.Category(),
		CorrelationID: correlationID,
		CreatedAt:     now,
	}, nil
}

func mapGender(code string) string {
	switch code {
	case "M":
		return "male"
	case "F":
		return "female"
	case "O":
		return "other"
	case "U":
		return "unknown"
	default:
		return ""
	}
}

func mapEncounterClass(patientClass string) *model.Coding {
	system := "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	switch patientClass {
	case "I":
		return &model.Coding{System: system, Code: "IMP", Display: "inpatient encounter"}
	case "O":
		return &model.Coding{System: system, Code: "AMB", Display: "ambulatory"}
	case "E":
		return &model.Coding{System: system, Code: "EMER", Display: "emergency"}
	case "":
		return nil
	default:
		return &model.Coding{System: system, Code: "AMB", Display: "ambulatory"}
	}
}

func mapOrderStatus(status string) string {
	switch status {
	case "CA":
		return "revoked"
	case "CM":
		return "completed"
	case "DC":
		return "revoked"
	case "HD":
		return "on-hold"
	default:
		return "active"
	}
}

func mapOrderPriority(priority string) string {
	switch priority {
	case "S":
		return "stat"
	case "A":
		return "asap"
	case "R", "":
		return "routine"
	default:
		return "routine"
	}
}

func mapObservationStatus(status string) string {
	switch status {
	case "P":
		return "preliminary"
	case "C":
		return "corrected"
	case "X":
		return "cancelled"
	default:
		return "final"
	}
}

func formatLocation(visit *hl7.VisitData) string {
	var parts []string
	if visit.Location != "" {
		parts = append(parts, visit.Location)
	}
	if visit.Room != "" {
		parts = append(parts, "Room "+visit.Room)
	}
	if visit.Bed != "" {
		parts = append(parts, "Bed "+visit.Bed)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " - "
		}
		out += p
	}
	return out
}
