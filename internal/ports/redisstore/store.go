// Package redisstore persists game snapshots and usage counters in Redis.
// Snapshots are JSON records under game:<id>; counters live under stats:<name>.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wagerchess/internal/domain"
	"wagerchess/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	gamePrefix    = "game:"
	counterPrefix = "stats:"
)

// Store implements ports.GameStore on a Redis client.
type Store struct {
	rdb *redis.Client
}

// Open connects to the Redis URL and pings it once.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// New wraps an existing client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func gameKey(gameID string) string {
	return gamePrefix + gameID
}

func counterKey(name string) string {
	return counterPrefix + name
}

func (s *Store) Get(ctx context.Context, gameID string) (*domain.Game, error) {
	data, err := s.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", gameID, err)
	}
	var game domain.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return &game, nil
}

func (s *Store) Save(ctx context.Context, gameID string, game *domain.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", gameID, err)
	}
	if err := s.rdb.Set(ctx, gameKey(gameID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", gameID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, gameID string) error {
	if err := s.rdb.Del(ctx, gameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", gameID, err)
	}
	return nil
}

// CountInProgress scans live snapshot keys. The scan is cursor-based and
// non-atomic; the count can be stale against concurrent creates.
func (s *Store) CountInProgress(ctx context.Context) (int, error) {
	count := 0
	iter := s.rdb.Scan(ctx, 0, gamePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

func (s *Store) IncrCounter(ctx context.Context, name string, delta int64) error {
	if err := s.rdb.IncrBy(ctx, counterKey(name), delta).Err(); err != nil {
		return fmt.Errorf("redis incrby %s: %w", name, err)
	}
	return nil
}
