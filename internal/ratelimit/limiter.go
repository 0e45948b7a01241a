// Package ratelimit ограничивает частоту запросов по аккаунту независимыми окнами
// минута/час/сутки. Лимиты не зависят от баланса: хорошо профинансированный аккаунт
// все равно может быть задросселирован.
package ratelimit

import (
	"context"
	"time"
)

type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Window размер окна гранулярности.
func (g Granularity) Window() time.Duration {
	switch g {
	case GranularityMinute:
		return time.Minute
	case GranularityHour:
		return time.Hour
	case GranularityDay:
		return 24 * time.Hour //nolint:mnd
	default:
		return time.Minute
	}
}

// Limits лимиты на каждое окно. Ноль отключает соответствующее окно.
type Limits struct {
	PerMinute int64
	PerHour   int64
	PerDay    int64
}

func (l Limits) limitFor(g Granularity) int64 {
	switch g {
	case GranularityMinute:
		return l.PerMinute
	case GranularityHour:
		return l.PerHour
	case GranularityDay:
		return l.PerDay
	default:
		return 0
	}
}

func granularities() []Granularity {
	return []Granularity{GranularityMinute, GranularityHour, GranularityDay}
}

// Limiter атомарно инкрементирует счетчики окон и проверяет лимиты.
type Limiter interface {
	// CheckAndIncrement инкрементирует счетчики всех активных окон аккаунта.
	// При превышении любого лимита возвращает domain.ErrRateLimitExceeded
	// (обернутый в *ExceededError с окном и задержкой повтора).
	CheckAndIncrement(ctx context.Context, accountID int64) error
}
