package store

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	createdAt time.Time
}

// TTLCache - потокобезопасный кеш с истечением записей по возрасту.
// Истечение ленивое: просроченная запись удаляется при чтении и считается
// отсутствующей, фонового уборщика нет. Отдать устаревшее значение нельзя.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]cacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache создает кеш с заданным временем жизни записей.
// Нулевой или отрицательный TTL означает бессрочные записи.
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		entries: make(map[K]cacheEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set сохраняет значение, перезаписывая предыдущее и обновляя возраст.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, createdAt: c.now()}
}

// Get возвращает значение по ключу. Просроченная запись вытесняется на
// месте и возвращается промах.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Delete удаляет запись, если она есть.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len возвращает число записей, включая еще не вытесненные просроченные.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup удаляет все просроченные записи и возвращает их число.
func (c *TTLCache[K, V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[K, V]) expired(entry cacheEntry[V]) bool {
	return c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl
}
