// Package cache, generic in-memory TTL cache.
//
// Her entry bir son kullanma zamanı taşır; süresi geçen entry okunamaz (cache miss).
// Fiziksel silme arka plandaki periyodik temizleme ile yapılır.
// sync.RWMutex ile korunur: okumalar paralel, yazmalar tekil.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, generic TTL cache.
//
//	c := cache.New[string, int](5*time.Minute, 5*time.Minute)
//	n, err := c.GetOrLoad("active", func() (int, error) { return repo.CountActive(ctx) })
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	// loadMu, GetOrLoad'ın aynı anda tek yükleme yapmasını sağlar.
	loadMu sync.Mutex

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New, cache oluşturur ve temizleme goroutine'ini başlatır.
// cleanupInterval, süresi dolan entry'lerin map'ten silinme sıklığıdır.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, (value, true) döner; key yoksa veya süresi dolduysa (zero, false).
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, değeri TTL ile yazar.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// GetOrLoad, cache'te geçerli değer varsa onu döner; yoksa load'u çağırır ve
// sonucu yazar. load hata dönerse cache değişmez.
// Eşzamanlı miss'lerde load yalnızca bir kez çalışır.
func (c *TTLCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete, key'i siler.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len, süresi dolmuşlar dahil entry sayısı.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close, temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
