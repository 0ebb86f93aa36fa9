package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const conversationKeyPrefix = "conversation:"

// RedisStore persists conversation histories in Redis so transcripts survive
// process restarts. Entries are JSON documents on a per-user list.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		return nil
	}
	return &RedisStore{
		redis:  redisClient,
		tracer: otel.Tracer("citabot.internal.conversation.store"),
	}
}

func (s *RedisStore) History(ctx context.Context, userKey string) ([]Entry, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if userKey == "" {
		return nil, errors.New("conversation: user key required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.store.history")
	defer span.End()

	raw, err := s.redis.LRange(ctx, conversationKey(userKey), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *RedisStore) Append(ctx context.Context, userKey string, entry Entry) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if userKey == "" {
		return errors.New("conversation: user key required")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("conversation: marshal history entry: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.store.append")
	defer span.End()

	if err := s.redis.RPush(ctx, conversationKey(userKey), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append history entry: %w", err)
	}
	return nil
}

func conversationKey(userKey string) string {
	return conversationKeyPrefix + userKey
}
