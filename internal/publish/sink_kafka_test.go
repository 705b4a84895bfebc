package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	err   error
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestBusSink_PublishesEnvelope(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewBusSink(producer, "audit-trail")

	record := finalizedRecord(false)
	record.Error = "commit failed"
	require.NoError(t, sink.Publish(context.Background(), record))

	assert.Equal(t, "audit-trail", producer.topic)
	assert.Equal(t, []byte(messageKey), producer.key)

	var env map[string]any
	require.NoError(t, json.Unmarshal(producer.value, &env))
	assert.Equal(t, "commit failed", env["error"])
	assert.Equal(t, "test-source", env["source"])
	assert.Equal(t, "user-1", env["subjectId"])
	assert.Equal(t, "trace-1", env["traceId"])

	tx, ok := env["transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tx-1", tx["id"])
	trail, ok := tx["trail"].([]any)
	require.True(t, ok)
	assert.Len(t, trail, 1)
}

func TestBusSink_EmptyTrailSerializesAsArray(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewBusSink(producer, "audit-trail")

	record := finalizedRecord(false)
	record.Entities = nil
	require.NoError(t, sink.Publish(context.Background(), record))

	var env map[string]any
	require.NoError(t, json.Unmarshal(producer.value, &env))
	tx := env["transaction"].(map[string]any)
	trail, ok := tx["trail"].([]any)
	require.True(t, ok, "trail must be an array, not null")
	assert.Empty(t, trail)
}

func TestBusSink_ProducerErrorPropagates(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	sink := NewBusSink(producer, "audit-trail")

	err := sink.Publish(context.Background(), finalizedRecord(true))
	require.ErrorContains(t, err, "broker unavailable")
}

func TestBusSink_UnfinalizedRecordFails(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewBusSink(producer, "audit-trail")

	record := finalizedRecord(true)
	record.Success = nil
	require.Error(t, sink.Publish(context.Background(), record))
	assert.Nil(t, producer.value)
}
