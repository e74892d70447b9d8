package dmn

import (
	"encoding/json"
	"fmt"
)

// Severity of a diagnostic message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Message is a diagnostic produced during evaluation.
type Message struct {
	Severity Severity
	Text     string
	// SourceID is the identifier of the node that produced the message.
	SourceID string
	// Cause is the underlying fault, if any.
	Cause error
}

// CauseText returns the description of the underlying fault, or "".
func (m Message) CauseText() string {
	if m.Cause == nil {
		return ""
	}
	return m.Cause.Error()
}

func (m Message) String() string {
	s := fmt.Sprintf("%s [%s] %s", m.Severity, m.SourceID, m.Text)
	if m.Cause != nil {
		s += ": " + m.Cause.Error()
	}
	return s
}

// MarshalJSON encodes the message in the format consumed by hosts:
// severity, text, source_node_id and an optional cause.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Severity string `json:"severity"`
		Text     string `json:"text"`
		SourceID string `json:"source_node_id"`
		Cause    string `json:"cause,omitempty"`
	}{
		Severity: m.Severity.String(),
		Text:     m.Text,
		SourceID: m.SourceID,
		Cause:    m.CauseText(),
	})
}
