package alerts

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-credits/internal/service"
)

type Servicer interface {
	RecentlyActiveAccounts(ctx context.Context, limit uint) ([]int64, error)
	Evaluate(ctx context.Context, accountID int64) (*service.AlertStatus, error)
}

// Notifier доставляет оповещение владельцу аккаунта. Реализация по умолчанию пишет
// в лог; почта или пуши подключаются той же сигнатурой.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
