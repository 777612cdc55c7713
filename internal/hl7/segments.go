package hl7

import "strings"

// segment is one pipe-delimited line of a message.
type segment struct {
	name   string
	fields []string
}

// Field returns the n-th field (1-based, HL7 numbering). For MSH the field
// separator itself counts as MSH-1, so MSH-2 is the encoding characters and
// MSH-9 the message type. Missing fields return "".
func (s segment) Field(n int) string {
	idx := n
	if s.name == "MSH" {
		if n == 1 {
			return "|"
		}
		idx = n - 1
	}
	if idx < 1 || idx >= len(s.fields) {
		return ""
	}
	return strings.TrimSpace(s.fields[idx])
}

// Component returns the n-th caret component (1-based) of the n-th field.
func (s segment) Component(field, n int) string {
	return component(s.Field(field), n)
}

func component(value string, n int) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "^")
	if n < 1 || n > len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[n-1])
}

// rawMessage is the segment-level view of a message. Splitting is tolerant
// of \r, \n and \r\n segment terminators.
type rawMessage struct {
	segments []segment
}

func splitSegments(raw string) rawMessage {
	normalized := strings.ReplaceAll(raw, "\r\n", "\r")
	normalized = strings.ReplaceAll(normalized, "\n", "\r")

	var msg rawMessage
	for _, line := range strings.Split(normalized, "\r") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		msg.segments = append(msg.segments, segment{
			name:   fields[0],
			fields: fields,
		})
	}
	return msg
}

// first returns the first segment with the given name.
func (m rawMessage) first(name string) (segment, bool) {
	for _, s := range m.segments {
		if s.name == name {
			return s, true
		}
	}
	return segment{}, false
}

// all returns every segment with the given name, in document order.
func (m rawMessage) all(name string) []segment {
	var out []segment
	for _, s := range m.segments {
		if s.name == name {
			out = append(out, s)
		}
	}
	return out
}
