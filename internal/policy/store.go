// Package policy owns the access policy of the feature: which projects are
// allowlisted site-wide, which of those have the feature toggled off, and
// the admin operations that mutate that state.
package policy

import (
    "context"
    "encoding/json"
    "sync"
)

// Storage keys. The shapes are: allowedProjects -> []string,
// allowedProjectsData -> map[projectKey]ProjectMeta,
// project_<KEY>_settings -> ProjectSettings.
const (
    KeyAllowedProjects     = "allowedProjects"
    KeyAllowedProjectsData = "allowedProjectsData"
)

func SettingsKey(projectKey string) string {
    return "project_" + projectKey + "_settings"
}

// Store is the narrow key/value contract the policy layer reads and writes
// through. Values are JSON documents. No transactions: read-modify-write on
// a key is last-writer-wins, which is acceptable for rare operator-driven
// policy changes.
type Store interface {
    // Get unmarshals the value under key into dst and reports whether the
    // key existed.
    Get(ctx context.Context, key string, dst any) (bool, error)
    Set(ctx context.Context, key string, val any) error
    Close()
}

// MemoryStore is the in-memory Store used by tests and STORE_BACKEND=memory.
type MemoryStore struct {
    mu   sync.RWMutex
    data map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
    return &MemoryStore{data: map[string]json.RawMessage{}}
}

func (s *MemoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
    s.mu.RLock()
    raw, ok := s.data[key]
    s.mu.RUnlock()
    if !ok { return false, nil }
    if err := json.Unmarshal(raw, dst); err != nil { return true, err }
    return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, val any) error {
    b, err := json.Marshal(val)
    if err != nil { return err }
    s.mu.Lock()
    s.data[key] = b
    s.mu.Unlock()
    return nil
}

func (s *MemoryStore) Close() {}
