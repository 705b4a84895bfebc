package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturn72/efaudit/internal/capture"
)

func finalizedRecord(success bool) *capture.AuditRecord {
	return &capture.AuditRecord{
		ID:        uuid.New(),
		Source:    "test-source",
		SubjectID: "user-1",
		TraceID:   "trace-1",
		ProviderInfo: map[string]string{
			"provider":      "memory",
			"transactionId": "tx-1",
		},
		Entities: []capture.EntityAudit{
			{
				Uuid:     uuid.New(),
				State:    capture.StateAdded,
				TypeName: "Account",
				Value: capture.Instance{
					Kind:        capture.KindAssociation,
					Association: map[string]any{"ID": int64(1)},
				},
				PrimaryKeyValue:    int64(1),
				ModifiedProperties: []capture.ModifiedProperty{},
			},
		},
		Success:    &success,
		EndedOnUtc: time.Now().UTC(),
	}
}

type countingSink struct {
	count int
	err   error
}

func (s *countingSink) Publish(_ context.Context, _ *capture.AuditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.count++
	return nil
}

func TestPublisher_FansOutToAllSinks(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	pub := New(nil, a, b)

	require.NoError(t, pub.Publish(context.Background(), finalizedRecord(true)))
	assert.Equal(t, 1, a.count)
	assert.Equal(t, 1, b.count)
}

func TestPublisher_SinkFailureFailsPublish(t *testing.T) {
	ok := &countingSink{}
	broken := &countingSink{err: errors.New("sink down")}
	pub := New(nil, ok, broken)

	err := pub.Publish(context.Background(), finalizedRecord(true))
	require.ErrorContains(t, err, "sink down")
}

func TestPublisher_RejectsUnfinalizedRecord(t *testing.T) {
	sink := &countingSink{}
	pub := New(nil, sink)

	record := finalizedRecord(true)
	record.Success = nil

	err := pub.Publish(context.Background(), record)
	require.Error(t, err)
	assert.Zero(t, sink.count)
}

func TestNewMessage(t *testing.T) {
	record := finalizedRecord(false)
	record.Error = "commit failed"

	msg, err := NewMessage(record)
	require.NoError(t, err)
	assert.Equal(t, record.ID, msg.RecordID)
	assert.Equal(t, "commit failed", msg.Error)
	assert.Equal(t, "test-source", msg.Source)
	assert.Equal(t, "user-1", msg.SubjectID)
	assert.Equal(t, "trace-1", msg.TraceID)
	assert.Equal(t, "tx-1", msg.TransactionID)
	assert.Len(t, msg.Trail, 1)
}

func TestNewMessage_Failures(t *testing.T) {
	_, err := NewMessage(nil)
	require.Error(t, err)

	record := finalizedRecord(true)
	record.Success = nil
	_, err = NewMessage(record)
	require.Error(t, err)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Publish(ctx, finalizedRecord(true)))
	require.NoError(t, rec.Publish(ctx, finalizedRecord(false)))

	messages := rec.Messages()
	require.Len(t, messages, 2)

	// The returned slice is a copy.
	messages[0].Source = "tampered"
	assert.Equal(t, "test-source", rec.Messages()[0].Source)

	rec.Clear()
	assert.Empty(t, rec.Messages())
}

func TestRecorder_MappingFailureFailsPublish(t *testing.T) {
	rec := NewRecorder()

	record := finalizedRecord(true)
	record.Success = nil

	require.Error(t, rec.Publish(context.Background(), record))
	assert.Empty(t, rec.Messages())
}
