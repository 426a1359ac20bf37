package policy

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
)

// RedisStore keeps the policy state as JSON strings under a fixed prefix.
// Policy entries have no TTL: the allowlist lives until an admin removes it.
type RedisStore struct {
    client *redis.Client
    prefix string
    log    zerolog.Logger
}

func NewRedisStore(redisURL string, log zerolog.Logger) (*RedisStore, error) {
    opts, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil { return nil, fmt.Errorf("connect to redis: %w", err) }
    return &RedisStore{client: client, prefix: "changelog:", log: log}, nil
}

// NewRedisStoreWithClient creates a store from an existing client (tests).
func NewRedisStoreWithClient(client *redis.Client, log zerolog.Logger) *RedisStore {
    return &RedisStore{client: client, prefix: "changelog:", log: log}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string, dst any) (bool, error) {
    raw, err := s.client.Get(ctx, s.key(key)).Result()
    if errors.Is(err, redis.Nil) { return false, nil }
    if err != nil { return false, fmt.Errorf("storage get %s: %w", key, err) }
    if err := json.Unmarshal([]byte(raw), dst); err != nil { return true, err }
    return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val any) error {
    b, err := json.Marshal(val)
    if err != nil { return err }
    if err := s.client.Set(ctx, s.key(key), b, 0).Err(); err != nil {
        return fmt.Errorf("storage set %s: %w", key, err)
    }
    return nil
}

func (s *RedisStore) Close() { _ = s.client.Close() }
