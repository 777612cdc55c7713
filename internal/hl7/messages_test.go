package hl7_test

import "strings"

// Shared sample messages. Segment builders keep field positions honest
// without counting pipes by hand.

func sampleMSH(msgType, controlID string) string {
	return "MSH|^~\\&|HIS|GeneralHospital|LAB|LabFacility|20240115103000||" + msgType + "|" + controlID + "|P|2.5"
}

func samplePID() string {
	return "PID|1||12345^^^HOSP^MR||DOE^JOHN^M||19800101|M|||123 MAIN ST^^SPRINGFIELD^IL^62701||555-1234^PRN|||M"
}

func samplePV1() string {
	return "PV1|1|I|ICU^101^A^GeneralHospital|E|||1001^SMITH^JANE|||MED" +
		strings.Repeat("|", 9) + "V1001" +
		strings.Repeat("|", 25) + "20240115090000|20240117120000"
}

func sampleADT() string {
	return strings.Join([]string{
		sampleMSH("ADT^A01", "MSG00001"),
		"EVN|A01|20240115103000",
		samplePID(),
		samplePV1(),
	}, "\r")
}

func sampleORU() string {
	return strings.Join([]string{
		sampleMSH("ORU^R01", "MSG00002"),
		samplePID(),
		"OBR|1|ORD001^HIS|FIL001^LAB|CBC^Complete Blood Count",
		"OBX|1|NM|GLU^Glucose|1|105|mg/dL|70-110|N|||F|||20240115100000",
		"OBX|2|ST|COL^Specimen Color|1|Amber||||||F|||20240115100000",
	}, "\r")
}

func sampleORM() string {
	return strings.Join([]string{
		sampleMSH("ORM^O01", "MSG00003"),
		samplePID(),
		"ORC|NW|ORD001^HIS|FIL001^LAB|GRP|IP||||20240115103000",
		"OBR|1|ORD001^HIS|FIL001^LAB|CBC^Complete Blood Count|S||20240115103000" +
			strings.Repeat("|", 9) + "1001^SMITH^JANE",
	}, "\r")
}
