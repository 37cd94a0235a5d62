package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cstats-bot/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisRepository keeps all bindings in one hash, field = chat user id and
// value = the same JSON object the file driver writes.
type RedisRepository struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

func NewRedisRepository(client *redis.Client, prefix string, logger zerolog.Logger) *RedisRepository {
	return &RedisRepository{client: client, key: prefix + ":bindings", logger: logger}
}

func (r *RedisRepository) Get(ctx context.Context, chatUserID string) (*domain.PlayerRecord, error) {
	data, err := r.client.HGet(ctx, r.key, chatUserID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBindingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding %s: %w", chatUserID, err)
	}

	var b storedBinding
	if err := jsoniter.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode binding %s: %w", chatUserID, err)
	}
	rec := b.record(chatUserID)
	return &rec, nil
}

func (r *RedisRepository) Put(ctx context.Context, record domain.PlayerRecord) error {
	data, err := jsoniter.Marshal(toStored(record))
	if err != nil {
		return fmt.Errorf("failed to encode binding: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, record.ChatUserID, data).Err(); err != nil {
		r.logger.Error().Err(err).Str("chat_user_id", record.ChatUserID).Msg("failed to store binding")
		return fmt.Errorf("failed to store binding %s: %w", record.ChatUserID, err)
	}
	return nil
}

func (r *RedisRepository) List(ctx context.Context) ([]domain.PlayerRecord, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}

	records := make([]domain.PlayerRecord, 0, len(all))
	for id, raw := range all {
		var b storedBinding
		if err := jsoniter.UnmarshalFromString(raw, &b); err != nil {
			r.logger.Warn().Err(err).Str("chat_user_id", id).Msg("skipping undecodable binding")
			continue
		}
		records = append(records, b.record(id))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ChatUserID < records[j].ChatUserID })
	return records, nil
}
