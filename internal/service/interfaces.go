package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Account, error)
	UpdateBalances(ctx context.Context, id int64, baseCredits, bonusCredits decimal.Decimal) error
	GetRecentlyActive(ctx context.Context, since time.Time, limit uint) ([]int64, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.ApplyTransaction, balanceAfter decimal.Decimal) (*domain.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, accountID int64, key string) (*domain.Transaction, error)
	GetByAccountID(ctx context.Context, accountID int64, limit uint) ([]domain.Transaction, error)
	SumUsageSince(ctx context.Context, accountID int64, since time.Time) (decimal.Decimal, error)
	SumByAccountID(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error)
	GetByAccountID(ctx context.Context, accountID int64, limit uint) ([]domain.Order, error)
	MarkCompleted(ctx context.Context, id int64, completedAt time.Time) (*domain.Order, error)
	MarkFailed(ctx context.Context, id int64) (*domain.Order, error)
}

// GatewayOrder заказ, созданный на стороне платежного шлюза.
type GatewayOrder struct {
	ProviderOrderID string
}

// GatewayClient клиент платежного шлюза. Реализация в transport/gateway.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error)
	KeyID() string
}
