package policy

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

// PGStore keeps the policy state in a single jsonb key/value table.
type PGStore struct {
    pool *pgxpool.Pool
    log  zerolog.Logger
}

const pgStoreSchema = `
CREATE TABLE IF NOT EXISTS app_storage (
    key        text PRIMARY KEY,
    value      jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`

func NewPGStore(ctx context.Context, dsn string, log zerolog.Logger) (*PGStore, error) {
    pool, err := pgxpool.New(ctx, dsn)
    if err != nil { return nil, err }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := pool.Ping(ctx2); err != nil { pool.Close(); return nil, err }
    if _, err := pool.Exec(ctx2, pgStoreSchema); err != nil { pool.Close(); return nil, err }
    return &PGStore{pool: pool, log: log}, nil
}

func (s *PGStore) Get(ctx context.Context, key string, dst any) (bool, error) {
    var raw []byte
    err := s.pool.QueryRow(ctx, `SELECT value FROM app_storage WHERE key=$1`, key).Scan(&raw)
    if errors.Is(err, pgx.ErrNoRows) { return false, nil }
    if err != nil { return false, err }
    if err := json.Unmarshal(raw, dst); err != nil { return true, err }
    return true, nil
}

func (s *PGStore) Set(ctx context.Context, key string, val any) error {
    b, err := json.Marshal(val)
    if err != nil { return err }
    _, err = s.pool.Exec(ctx, `
        INSERT INTO app_storage(key, value, updated_at) VALUES($1, $2, now())
        ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, key, b)
    return err
}

func (s *PGStore) Close() { s.pool.Close() }
