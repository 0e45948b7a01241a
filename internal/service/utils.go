package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/fsdevblog/groph-credits/internal/domain"
)

// jitter возвращает число, рассыпавшееся относительно value на случайный процент в пределах
// [1-minPercent, 1+maxPercent].
// Например, если minPercent=0.15, maxPercent=0.15, получим диапазон [0.85*value, 1.15*value].
//
// minPercent и maxPercent должны быть >= 0 (0.1 = 10%). Если указано иное, значение выставится в 0.15.
func jitter(value, minPercent, maxPercent float64) float64 {
	if minPercent < 0 || maxPercent < 0 {
		minPercent = 0.15
		maxPercent = 0.15
	}
	factor := 1 - minPercent + rand.Float64()*(minPercent+maxPercent) // nolint:gosec
	return value * factor
}

const (
	maxWriteAttempts  = 3
	writeRetryBackoff = 50 * time.Millisecond
)

// withWriteRetry выполняет fn, повторяя её при domain.ErrWriteConflict ограниченное
// число раз с паузой и джиттером. Исчерпав попытки, возвращает последнюю ошибку.
func withWriteRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}
		backoff := time.Duration(jitter(float64(writeRetryBackoff)*float64(attempt+1), 0.15, 0.15))
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-time.After(backoff):
		}
	}
	return err
}
