package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/service"
)

// AccountServicer интерфейс исключительно для моков.
type AccountServicer interface {
	Register(ctx context.Context, args service.RegisterAccountArgs) (*domain.Account, string, error)
	Login(ctx context.Context, args service.LoginAccountArgs) (*domain.Account, string, error)
}

type LedgerServicer interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.Balance, error)
	GetTransactions(ctx context.Context, accountID int64, limit uint) ([]domain.Transaction, error)
}

type UsageServicer interface {
	CanConsume(ctx context.Context, accountID int64, estimatedCost decimal.Decimal) (bool, error)
	ChargeUsage(
		ctx context.Context,
		accountID int64,
		actualUnits decimal.Decimal,
		requestID string,
	) (*domain.Transaction, error)
}

type OrderServicer interface {
	ListPackages() []domain.Package
	CreateOrder(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, *service.CheckoutParams, error)
	GetByAccountID(ctx context.Context, accountID int64, limit uint) ([]domain.Order, error)
}

type PaymentServicer interface {
	HandleEvent(ctx context.Context, event service.PaymentEvent) (*service.HandleEventResult, error)
}

type AlertServicer interface {
	Evaluate(ctx context.Context, accountID int64) (*service.AlertStatus, error)
}
