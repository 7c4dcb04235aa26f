package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// RedisStore implements Store with one JSON document per record.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "tickstream:presence:"
	}

	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

func (r *RedisStore) put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	return r.client.Set(ctx, r.key(rec.ID), data, 0).Err()
}

func (r *RedisStore) Upsert(ctx context.Context, id, username string) error {
	now := time.Now().UTC()
	rec, err := r.get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return r.put(ctx, &Record{
			ID:          id,
			Username:    username,
			ConnectedAt: now,
			LastActive:  now,
			Online:      true,
		})
	}
	if err != nil {
		return err
	}
	rec.Username = username
	rec.LastActive = now
	rec.Online = true
	rec.DisconnectedAt = nil
	return r.put(ctx, rec)
}

func (r *RedisStore) MarkOffline(ctx context.Context, id string) error {
	rec, err := r.get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.Online {
		return nil
	}
	now := time.Now().UTC()
	rec.Online = false
	rec.DisconnectedAt = &now
	return r.put(ctx, rec)
}

func (r *RedisStore) TouchActivity(ctx context.Context, id string) error {
	rec, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	rec.LastActive = time.Now().UTC()
	return r.put(ctx, rec)
}

func (r *RedisStore) Rename(ctx context.Context, id, username string) (string, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return "", err
	}
	rec.Username = username
	if err := r.put(ctx, rec); err != nil {
		return "", err
	}
	return username, nil
}

// scan walks every record under the key prefix and calls fn for each.
func (r *RedisStore) scan(ctx context.Context, fn func(*Record) error) error {
	var cursor uint64
	pattern := r.keyPrefix + "*"

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue // key may have vanished between SCAN and GET
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				continue
			}
			if err := fn(&rec); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisStore) ListOnline(ctx context.Context) ([]Record, error) {
	var out []Record
	err := r.scan(ctx, func(rec *Record) error {
		if rec.Online {
			out = append(out, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RedisStore) ListAll(ctx context.Context) ([]Record, error) {
	var out []Record
	err := r.scan(ctx, func(rec *Record) error {
		out = append(out, *rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RedisStore) SweepStale(ctx context.Context, cutoff time.Duration) (int, error) {
	now := time.Now().UTC()
	deadline := now.Add(-cutoff)
	swept := 0

	err := r.scan(ctx, func(rec *Record) error {
		if !rec.Online || !rec.LastActive.Before(deadline) {
			return nil
		}
		disconnected := now
		rec.Online = false
		rec.DisconnectedAt = &disconnected
		if err := r.put(ctx, rec); err != nil {
			return err
		}
		swept++
		return nil
	})
	if err != nil {
		return swept, err
	}
	return swept, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
