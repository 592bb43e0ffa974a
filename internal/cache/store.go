package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a TTL key-value store shared by the rate limiter and the OAuth
// state single-use guard. It is injected so single-instance deployments can
// run on the in-process map while multi-instance deployments share Redis.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	// SetNX stores the value only if the key is absent; reports whether it won.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr increments a counter, starting its expiry window on first use.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryEntry struct {
	value     string
	count     int64
	expiresAt time.Time
}

// MemoryStore is the in-process Store. A background janitor evicts expired
// entries; Stop terminates it.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryEntry
	done  chan struct{}
	once  sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*memoryEntry),
		done:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.items {
				if now.After(e.expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.items[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.items, key)
		return nil
	}
	return e
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) != nil {
		return false, nil
	}
	s.items[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		e = &memoryEntry{expiresAt: time.Now().Add(window)}
		s.items[key] = e
	}
	e.count++
	return e.count, nil
}
