// Package idempotency keeps the first response produced for an
// Idempotency-Key so a retried request can be answered without re-running it.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	Header    = "Idempotency-Key"
	keyPrefix = "order-pipeline:idempotency"
)

// PendingTTL bounds how long a claim survives a request that never completes.
const PendingTTL = time.Minute

// Record is a stored response, or a pending claim while the first request runs.
// Body is base64 encoded by encoding/json.
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

func PendingRecord(requestHash string) *Record {
	return &Record{Pending: true, RequestHash: requestHash}
}

type Store interface {
	// Get returns nil, nil when nothing is stored under key.
	Get(ctx context.Context, key string) (*Record, error)
	// Claim stores rec only if key is free and reports whether it did.
	Claim(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error)
	// Complete overwrites whatever is stored under key.
	Complete(ctx context.Context, key string, rec *Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Key scopes a client supplied key to the request it was sent with.
func Key(method, path, clientKey string) string {
	return strings.Join([]string{keyPrefix, method, path, clientKey}, ":")
}

func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Claim(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, payload, ttl).Result()
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec *Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore keeps records in process. It backs the in-memory store driver,
// where a single process serves every request.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

// live returns the unexpired entry under key. Callers hold mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

func (s *MemoryStore) Claim(_ context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{rec: *rec, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: *rec, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
