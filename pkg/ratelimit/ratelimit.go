// Package ratelimit, katılımcı bazlı mesaj gönderme sınırlaması.
//
// Her katılımcının kendi token bucket'ı vardır (golang.org/x/time/rate).
// Uzun süre kullanılmayan bucket'lar arka planda temizlenir.
// Proje içi hiçbir pakete bağımlı değildir; middleware ve testler doğrudan kullanır.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRate  = 1.0 // saniyede mesaj
	DefaultBurst = 5
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SendLimiter, key (participant id) başına rate.Limiter havuzu.
//
//	limiter := ratelimit.NewSendLimiter(1, 5, 10*time.Minute)
//	defer limiter.Close()
//	if ok, wait := limiter.Allow(participantID); !ok { ... 429, Retry-After: wait }
type SendLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewSendLimiter, havuzu oluşturur ve temizleme goroutine'ini başlatır.
// rps veya burst <= 0 ise varsayılanlar kullanılır.
func NewSendLimiter(rps float64, burst int, idleTTL time.Duration) *SendLimiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	l := &SendLimiter{
		limiters:    make(map[string]*limiterEntry),
		rps:         rate.Limit(rps),
		burst:       burst,
		idleTTL:     idleTTL,
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow, key için bir token harcar. Token yoksa false ve bir sonraki
// token'a kadar beklenecek süreyi döner.
func (l *SendLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Close, temizleme goroutine'ini durdurur.
func (l *SendLimiter) Close() {
	l.closeOnce.Do(func() { close(l.stopCleanup) })
}

func (l *SendLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *SendLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

func (l *SendLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
