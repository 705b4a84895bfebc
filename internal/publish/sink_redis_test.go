package publish

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecentSink(t *testing.T, capacity int64) *RecentSink {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRecentSink(client, "audit:recent", capacity)
}

func TestRecentSink_PublishAndRead(t *testing.T) {
	sink := newRecentSink(t, 10)
	ctx := context.Background()

	first := finalizedRecord(true)
	second := finalizedRecord(false)
	second.Error = "commit failed"

	require.NoError(t, sink.Publish(ctx, first))
	require.NoError(t, sink.Publish(ctx, second))

	messages, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Newest first.
	assert.Equal(t, second.ID, messages[0].RecordID)
	assert.Equal(t, "commit failed", messages[0].Error)
	assert.Equal(t, first.ID, messages[1].RecordID)
}

func TestRecentSink_TrimsToCapacity(t *testing.T) {
	sink := newRecentSink(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Publish(ctx, finalizedRecord(true)))
	}

	messages, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestRecentSink_UnfinalizedRecordFails(t *testing.T) {
	sink := newRecentSink(t, 3)

	record := finalizedRecord(true)
	record.Success = nil
	require.Error(t, sink.Publish(context.Background(), record))
}
