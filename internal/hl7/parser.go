package hl7

import (
	"strings"
	"time"

	dErrors "hl7bridge/pkg/domain-errors"
)

// ParsedMessage is the normalized clinical model extracted from one valid
// message. It is immutable once produced; the transformer reads it only.
type ParsedMessage struct {
	MessageType      string // base type plus trigger, e.g. "ADT^A01"
	MessageVersion   string
	MessageControlID string
	MessageTimestamp time.Time
	SendingApp       string
	ReceivingApp     string

	Patient      *PatientData
	Visit        *VisitData
	Orders       []OrderData
	Observations []ObservationData
}

// PatientData holds demographics from the PID segment.
type PatientData struct {
	PatientID           string
	MedicalRecordNumber string
	FamilyName          string
	GivenName           string
	MiddleName          string
	DateOfBirth         time.Time
	Gender              string
	Street              string
	City                string
	State               string
	PostalCode          string
	PhoneNumber         string
	MaritalStatus       string
}

// VisitData holds encounter details from the PV1 segment.
type VisitData struct {
	VisitNumber     string
	PatientClass    string
	Location        string
	Room            string
	Bed             string
	Facility        string
	AdmissionType   string
	HospitalService string
	AttendingDoctor string
	AdmitTime       time.Time
	DischargeTime   time.Time
}

// OrderData holds one order from an ORC/OBR pair.
type OrderData struct {
	PlacerOrderNumber string
	FillerOrderNumber string
	OrderCode         string
	OrderName         string
	OrderStatus       string
	Priority          string
	OrderingProvider  string
	OrderTime         time.Time
}

// ObservationData holds one OBX result.
type ObservationData struct {
	SetID           string
	ValueType       string
	ObservationCode string
	ObservationName string
	Value           string
	Units           string
	ReferenceRange  string
	AbnormalFlags   string
	Status          string
	ObservedAt      time.Time
}

// Parser extracts the normalized model from raw messages. Parsing is pure
// and deterministic; unknown segments are ignored for forward
// compatibility.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a raw message into the normalized model. It must only be
// called on messages that passed validation; failures here (e.g. malformed
// dates the validator could not catch) abort the pipeline as transform
// errors.
func (p *Parser) Parse(raw string) (*ParsedMessage, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, dErrors.New(dErrors.CodeTransform, "cannot parse an empty message")
	}

	msg := splitSegments(raw)
	msh, ok := msg.first("MSH")
	if !ok {
		return nil, dErrors.New(dErrors.CodeTransform, "message has no MSH segment")
	}

	parsed := &ParsedMessage{
		MessageVersion:   msh.Field(12),
		MessageControlID: msh.Field(10),
		SendingApp:       msh.Field(3),
		ReceivingApp:     msh.Field(5),
	}

	msgType := msh.Component(9, 1)
	if trigger := msh.Component(9, 2); trigger != "" {
		parsed.MessageType = msgType + "^" + trigger
	} else {
		parsed.MessageType = msgType
	}

	if ts := msh.Field(7); ts != "" {
		t, err := parseDateTime(ts)
		if err != nil {
			return nil, err
		}
		parsed.MessageTimestamp = t
	}

	if pid, ok := msg.first("PID"); ok {
		patient, err := parsePatient(pid)
		if err != nil {
			return nil, err
		}
		parsed.Patient = patient
	}

	if pv1, ok := msg.first("PV1"); ok {
		visit, err := parseVisit(pv1)
		if err != nil {
			return nil, err
		}
		parsed.Visit = visit
	}

	// Orders and observations are only meaningful for their message
	// families; other types simply have none of these segments.
	switch strings.ToUpper(msgType) {
	case "ORM":
		orders, err := parseOrders(msg)
		if err != nil {
			return nil, err
		}
		parsed.Orders = orders
	case "ORU":
		observations, err := parseObservations(msg)
		if err != nil {
			return nil, err
		}
		parsed.Observations = observations
	}

	return parsed, nil
}

func parsePatient(pid segment) (*PatientData, error) {
	patient := &PatientData{
		PatientID:           firstNonEmpty(pid.Component(3, 1), pid.Field(3)),
		MedicalRecordNumber: firstNonEmpty(pid.Component(3, 1), pid.Field(3)),
		FamilyName:          pid.Component(5, 1),
		GivenName:           pid.Component(5, 2),
		MiddleName:          pid.Component(5, 3),
		Gender:              pid.Field(8),
		Street:              pid.Component(11, 1),
		City:                pid.Component(11, 3),
		State:               pid.Component(11, 4),
		PostalCode:          pid.Component(11, 5),
		PhoneNumber:         pid.Component(13, 1),
		MaritalStatus:       pid.Component(16, 1),
	}
	if dob := pid.Field(7); dob != "" {
		t, err := parseDate(dob)
		if err != nil {
			return nil, err
		}
		patient.DateOfBirth = t
	}
	return patient, nil
}

func parseVisit(pv1 segment) (*VisitData, error) {
	visit := &VisitData{
		VisitNumber:     pv1.Component(19, 1),
		PatientClass:    pv1.Field(2),
		Location:        pv1.Component(3, 1),
		Room:            pv1.Component(3, 2),
		Bed:             pv1.Component(3, 3),
		Facility:        pv1.Component(3, 4),
		AdmissionType:   pv1.Field(4),
		AttendingDoctor: formatProvider(pv1, 7),
		HospitalService: pv1.Field(10),
	}
	if admit := pv1.Field(44); admit != "" {
		t, err := parseDateTime(admit)
		if err != nil {
			return nil, err
		}
		visit.AdmitTime = t
	}
	if discharge := pv1.Field(45); discharge != "" {
		t, err := parseDateTime(discharge)
		if err != nil {
			return nil, err
		}
		visit.DischargeTime = t
	}
	return visit, nil
}

func parseOrders(msg rawMessage) ([]OrderData, error) {
	obrs := msg.all("OBR")
	var orders []OrderData
	for i, orc := range msg.all("ORC") {
		order := OrderData{
			PlacerOrderNumber: orc.Component(2, 1),
			FillerOrderNumber: orc.Component(3, 1),
			OrderStatus:       orc.Field(5),
		}
		if ts := orc.Field(9); ts != "" {
			t, err := parseDateTime(ts)
			if err != nil {
				return nil, err
			}
			order.OrderTime = t
		}
		// OBR segments pair positionally with their ORC.
		if i < len(obrs) {
			obr := obrs[i]
			order.OrderCode = obr.Component(4, 1)
			order.OrderName = obr.Component(4, 2)
			order.Priority = obr.Field(5)
			order.OrderingProvider = formatProvider(obr, 16)
			if order.OrderTime.IsZero() {
				if ts := obr.Field(7); ts != "" {
					t, err := parseDateTime(ts)
					if err != nil {
						return nil, err
					}
					order.OrderTime = t
				}
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseObservations(msg rawMessage) ([]ObservationData, error) {
	var observations []ObservationData
	for _, obx := range msg.all("OBX") {
		obs := ObservationData{
			SetID:           obx.Field(1),
			ValueType:       obx.Field(2),
			ObservationCode: obx.Component(3, 1),
			ObservationName: obx.Component(3, 2),
			Value:           obx.Field(5),
			Units:           obx.Component(6, 1),
			ReferenceRange:  obx.Field(7),
			AbnormalFlags:   obx.Field(8),
			Status:          obx.Field(11),
		}
		if ts := obx.Field(14); ts != "" {
			t, err := parseDateTime(ts)
			if err != nil {
				return nil, err
			}
			obs.ObservedAt = t
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// formatProvider renders an XCN field (id^family^given) as "family, given".
func formatProvider(s segment, field int) string {
	family := s.Component(field, 2)
	given := s.Component(field, 3)
	switch {
	case family != "" && given != "":
		return family + ", " + given
	case family != "":
		return family
	default:
		return s.Component(field, 1)
	}
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{"20060102", "200601", "2006"} {
		if len(value) == len(layout) {
			t, err := time.Parse(layout, value)
			if err != nil {
				break
			}
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeTransform, "malformed HL7 date: "+value)
}

func parseDateTime(value string) (time.Time, error) {
	trimmed := value
	if idx := strings.IndexAny(trimmed, "+-"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.Index(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	for _, layout := range []string{"20060102150405", "200601021504", "20060102"} {
		if len(trimmed) == len(layout) {
			t, err := time.Parse(layout, trimmed)
			if err != nil {
				break
			}
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeTransform, "malformed HL7 timestamp: "+value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
