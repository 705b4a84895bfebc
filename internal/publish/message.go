package publish

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/saturn72/efaudit/internal/capture"
)

// Message is the application-level view of a published audit record, the
// shape handed to in-process consumers and serialized onto the bus.
type Message struct {
	RecordID      uuid.UUID             `json:"recordId"`
	Error         string                `json:"error,omitempty"`
	Source        string                `json:"source"`
	SubjectID     string                `json:"subjectId,omitempty"`
	TraceID       string                `json:"traceId,omitempty"`
	TransactionID string                `json:"transactionId,omitempty"`
	Trail         []capture.EntityAudit `json:"trail"`
	EndedOnUtc    time.Time             `json:"endedOnUtc"`
}

// NewMessage maps a finalized record into a Message. A record that cannot be
// mapped must fail the publish, never drop the event.
func NewMessage(record *capture.AuditRecord) (*Message, error) {
	if record == nil {
		return nil, errors.New("map audit record: nil record")
	}
	if !record.Finalized() {
		return nil, errors.New("map audit record: record is not finalized")
	}
	return &Message{
		RecordID:      record.ID,
		Error:         record.Error,
		Source:        record.Source,
		SubjectID:     record.SubjectID,
		TraceID:       record.TraceID,
		TransactionID: record.TransactionID(),
		Trail:         record.Entities,
		EndedOnUtc:    record.EndedOnUtc,
	}, nil
}
