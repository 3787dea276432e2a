package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vbonduro/roastmail/internal/session"
)

const (
	keyPrefix = "roastmail:session:"
	// maxUpdateRetries bounds optimistic-lock retries when two requests race
	// on the same session.
	maxUpdateRetries = 10
)

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps sessions as JSON values that expire ttl after the last
// write. Update uses WATCH/MULTI so the in-flight guard holds across
// replicas.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisStore(client *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

func (s *RedisStore) Create(ctx context.Context, v session.ViewState) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, key(v.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (session.ViewState, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return session.ViewState{}, session.ErrNotFound
	}
	if err != nil {
		return session.ViewState{}, fmt.Errorf("failed to get session: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(session.ViewState) (session.ViewState, error)) (session.ViewState, error) {
	k := key(id)
	for range maxUpdateRetries {
		var (
			result session.ViewState
			fnErr  error
		)
		err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			data, err := tx.Get(ctx, k).Bytes()
			if errors.Is(err, goredis.Nil) {
				return session.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get session: %w", err)
			}
			cur, err := decode(data)
			if err != nil {
				return err
			}

			next, err := fn(cur)
			if err != nil {
				result, fnErr = cur, err
				return nil
			}
			next.ID = id
			encoded, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, k, encoded, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = next
			return nil
		}, k)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return session.ViewState{}, err
		}
		return result, fnErr
	}
	return session.ViewState{}, fmt.Errorf("session %s: too much contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func decode(data []byte) (session.ViewState, error) {
	var v session.ViewState
	if err := json.Unmarshal(data, &v); err != nil {
		return session.ViewState{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return v, nil
}
