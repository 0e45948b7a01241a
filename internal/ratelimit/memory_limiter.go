package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowKey struct {
	accountID   int64
	granularity Granularity
}

type windowCounter struct {
	windowStart time.Time
	count       int64
}

// MemoryLimiter процессный лимитер с фиксированными окнами для однонодовых
// развертываний и тестов. Протухшее окно лениво сбрасывается при первом обращении
// после истечения.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[windowKey]*windowCounter
	limits  Limits
	now     func() time.Time
}

func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[windowKey]*windowCounter),
		limits:  limits,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) CheckAndIncrement(_ context.Context, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// Сначала проверяем все окна, затем инкрементируем: отклоненный запрос не должен
	// съедать квоту остальных окон.
	for _, g := range granularities() {
		limit := m.limits.limitFor(g)
		if limit <= 0 {
			continue
		}
		counter := m.counterFor(accountID, g, now)
		if counter.count >= limit {
			windowEnd := counter.windowStart.Add(g.Window())
			return &ExceededError{
				Granularity: g,
				RetryAfter:  windowEnd.Sub(now),
			}
		}
	}

	for _, g := range granularities() {
		if m.limits.limitFor(g) <= 0 {
			continue
		}
		m.counterFor(accountID, g, now).count++
	}
	return nil
}

// counterFor возвращает счетчик текущего окна, сбрасывая протухший.
func (m *MemoryLimiter) counterFor(accountID int64, g Granularity, now time.Time) *windowCounter {
	key := windowKey{accountID: accountID, granularity: g}
	windowStart := now.Truncate(g.Window())

	counter, ok := m.windows[key]
	if !ok || counter.windowStart.Before(windowStart) {
		counter = &windowCounter{windowStart: windowStart}
		m.windows[key] = counter
	}
	return counter
}
