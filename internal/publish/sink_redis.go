package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/saturn72/efaudit/internal/capture"
)

// RecentSink keeps the newest audit messages in a capped Redis list for
// quick operational lookup without touching the durable stores.
type RecentSink struct {
	client redis.Cmdable
	key    string
	cap    int64
}

func NewRecentSink(client redis.Cmdable, key string, capacity int64) *RecentSink {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentSink{client: client, key: key, cap: capacity}
}

func (s *RecentSink) Publish(ctx context.Context, record *capture.AuditRecord) error {
	msg, err := NewMessage(record)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal audit message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, payload)
	pipe.LTrim(ctx, s.key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push audit message to redis: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages, newest first.
func (s *RecentSink) Recent(ctx context.Context, limit int64) ([]Message, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	raw, err := s.client.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent audit messages: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode recent audit message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
