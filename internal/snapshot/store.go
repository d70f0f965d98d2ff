package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"o2d-backend/internal/dispatch"
)

// ErrMiss means the store holds no snapshot.
var ErrMiss = errors.New("snapshot: miss")

// Snapshot is one fetch of the FMS sheet, already mapped.
type Snapshot struct {
	Records   []dispatch.Record `json:"records"`
	Options   dispatch.Options  `json:"options"`
	Header    []string          `json:"header,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`

	// columns after header resolution, used to address writes
	Columns map[dispatch.Field]int `json:"columns,omitempty"`
}

// Store keeps the latest snapshot.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
}

// MemoryStore keeps the snapshot in process.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, ErrMiss
	}
	return m.snap, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
	return nil
}

const DefaultRedisKey = "o2d:snapshot:fms"

// RedisStore shares the snapshot between server replicas.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
