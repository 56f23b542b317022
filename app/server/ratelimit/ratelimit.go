package ratelimit

import (
	"sync"
	"time"
)

// 新增键时若表规模超过该值，则顺带清理过期条目，避免无限增长
const sweepThreshold = 4096

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter 是固定窗口限流器，按键独立计数。
// 固定窗口的取舍：跨窗口边界的突发最多可以通过 2×maxAttempts 次请求。
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock 注入时钟，测试时用来控制窗口推进。
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// Allow 报告该键的本次请求是否放行。
// 首次使用或窗口过期时重置窗口（count=1）；达到 maxAttempts 后拒绝且不再累加。
func (l *Limiter) Allow(key string, maxAttempts int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		if !ok && len(l.entries) >= sweepThreshold {
			l.sweep(now)
		}
		l.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return true
	}

	if e.count >= maxAttempts {
		return false
	}

	e.count++
	return true
}

// size 返回当前保留的条目数，包括已过期但尚未清理的。
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) sweep(now time.Time) {
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
		}
	}
}
