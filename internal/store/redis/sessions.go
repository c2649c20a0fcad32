// Package redis keeps live daily sessions in Redis so several server
// instances can share them. Sessions expire after Config.SessionTTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/store"
)

// SessionStore is a Redis-backed store.SessionStore.
type SessionStore struct {
	client *redis.Client
	cfg    Config
}

var _ store.SessionStore = (*SessionStore)(nil)

// New connects to cfg.URL and verifies the connection.
func New(cfg Config) (*SessionStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client (for testing).
func NewWithClient(client *redis.Client, cfg Config) *SessionStore {
	return &SessionStore{client: client, cfg: cfg}
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

func (s *SessionStore) SaveSession(ctx context.Context, sess *game.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, s.cfg.SessionTTL)
	pipe.Set(ctx, playerDayIndexKey(sess.PlayerID, sess.Day), sess.ID, s.cfg.SessionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var sess game.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SessionStore) FindSession(ctx context.Context, playerID, day string) (*game.Session, error) {
	id, err := s.client.Get(ctx, playerDayIndexKey(playerID, day)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return s.GetSession(ctx, id)
}
