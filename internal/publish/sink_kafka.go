package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/saturn72/efaudit/internal/capture"
)

// messageKey routes all audit envelopes onto one partition key so consumers
// see records in publish order.
const messageKey = "audit-trail"

// BusProducer publishes one message to a named topic.
type BusProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// envelope is the wire shape forwarded to the bus.
type envelope struct {
	Error       string              `json:"error,omitempty"`
	Source      string              `json:"source"`
	SubjectID   string              `json:"subjectId,omitempty"`
	TraceID     string              `json:"traceId,omitempty"`
	Transaction envelopeTransaction `json:"transaction"`
}

type envelopeTransaction struct {
	ID    string                `json:"id,omitempty"`
	Trail []capture.EntityAudit `json:"trail"`
}

func newEnvelope(record *capture.AuditRecord) (*envelope, error) {
	msg, err := NewMessage(record)
	if err != nil {
		return nil, err
	}
	trail := msg.Trail
	if trail == nil {
		trail = make([]capture.EntityAudit, 0)
	}
	return &envelope{
		Error:     msg.Error,
		Source:    msg.Source,
		SubjectID: msg.SubjectID,
		TraceID:   msg.TraceID,
		Transaction: envelopeTransaction{
			ID:    msg.TransactionID,
			Trail: trail,
		},
	}, nil
}

// BusSink forwards finalized records to a message bus topic.
type BusSink struct {
	producer BusProducer
	topic    string
}

func NewBusSink(producer BusProducer, topic string) *BusSink {
	return &BusSink{producer: producer, topic: topic}
}

func (s *BusSink) Publish(ctx context.Context, record *capture.AuditRecord) error {
	env, err := newEnvelope(record)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal audit envelope: %w", err)
	}
	return s.producer.Publish(ctx, s.topic, []byte(messageKey), payload)
}
