// Package redis backs chat sessions with a redis list per session, so
// multiple API replicas share conversation history.
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/shopchat/session"
)

const keyPrefix = "chat:session:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) session.Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Ensure(ctx context.Context, id string) (string, error) {
	if id != "" {
		ok, err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return uuid.NewString(), nil
}

func (s *Store) AppendQuestion(ctx context.Context, id, question string) error {
	key := keyPrefix + id
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, question)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Questions(ctx context.Context, id string, limit int) ([]string, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	questions, err := s.client.LRange(ctx, keyPrefix+id, start, -1).Result()
	if err != nil {
		return nil, err
	}
	return questions, nil
}
