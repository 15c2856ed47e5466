package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend with an in-memory map, for dev and tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]memoryItem
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{data: make(map[string]memoryItem)}
	go b.sweepExpired()
	return b
}

func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	item, ok := b.data[key]
	if !ok || time.Now().After(item.expiresAt) {
		return "", false, nil
	}
	return item.value, true, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

func (b *MemoryBackend) sweepExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		b.mu.Lock()
		now := time.Now()
		for k, item := range b.data {
			if now.After(item.expiresAt) {
				delete(b.data, k)
			}
		}
		b.mu.Unlock()
	}
}
