package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/catalog"
	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

// OrderService создает отложенные заказы на покупку кредитов и выдает параметры
// оплаты для шлюза. Заказ остается PENDING до разрешения обработчиком платежных
// событий; протухание брошенных заказов - забота внешней сверки, не этого сервиса.
type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	catalog   *catalog.Catalog
	gateway   GatewayClient
}

func NewOrderService(u uow.UOW, cat *catalog.Catalog, gw GatewayClient) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err
	}
	return &OrderService{
		uow:       u,
		orderRepo: orderRepo,
		catalog:   cat,
		gateway:   gw,
	}, nil
}

// ListPackages возвращает каталог пакетов кредитов.
func (o *OrderService) ListPackages() []domain.Package {
	return o.catalog.Packages()
}

type CreateOrderArgs struct {
	AccountID int64
	// PackageID ID пакета из каталога либо domain.PackageCustomID.
	PackageID string
	// CustomAmount сумма для произвольного пакета. Для фиксированных пакетов игнорируется.
	CustomAmount decimal.Decimal
	// Quantity количество пакетов, минимум 1.
	Quantity int64
}

// CheckoutParams параметры для открытия оплаты на стороне шлюза.
type CheckoutParams struct {
	OrderID         int64
	ProviderOrderID string
	GatewayKeyID    string
	Amount          decimal.Decimal
}

// CreateOrder валидирует сумму, считает базовое и бонусное зачисление по бонусной
// таблице, создает заказ на стороне шлюза и затем PENDING заказ в БД.
//
// Порядок важен: сначала шлюз, потом БД. Отказ шлюза оставляет систему без
// частичного состояния (domain.ErrGatewayUnavailable), отказ БД оставляет ничейный
// заказ на шлюзе, который никогда не будет оплачен подписанным уведомлением.
func (o *OrderService) CreateOrder(ctx context.Context, args CreateOrderArgs) (*domain.Order, *CheckoutParams, error) {
	base, err := o.requestedAmount(args)
	if err != nil {
		return nil, nil, err
	}
	bonus := o.catalog.BonusFor(base)

	receipt := fmt.Sprintf("acc-%d-%s", args.AccountID, args.PackageID)
	gatewayOrder, gwErr := o.gateway.CreateOrder(ctx, base, receipt)
	if gwErr != nil {
		return nil, nil, fmt.Errorf("creating gateway order: %w", gwErr)
	}

	order, createErr := o.orderRepo.CreateOrder(ctx, repoargs.CreateOrder{
		AccountID:       args.AccountID,
		PackageID:       args.PackageID,
		RequestedAmount: base,
		CreditedBase:    base,
		CreditedBonus:   bonus,
		ProviderOrderID: gatewayOrder.ProviderOrderID,
	})
	if createErr != nil {
		return nil, nil, fmt.Errorf("creating order: %w", createErr)
	}

	return order, &CheckoutParams{
		OrderID:         order.ID,
		ProviderOrderID: order.ProviderOrderID,
		GatewayKeyID:    o.gateway.KeyID(),
		Amount:          base,
	}, nil
}

// GetByAccountID возвращает заказы аккаунта по убыванию даты создания.
func (o *OrderService) GetByAccountID(ctx context.Context, accountID int64, limit uint) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetByAccountID(ctx, accountID, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// requestedAmount вычисляет базовую сумму кредитов заказа с учетом количества.
func (o *OrderService) requestedAmount(args CreateOrderArgs) (decimal.Decimal, error) {
	if args.Quantity < 1 {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	quantity := decimal.NewFromInt(args.Quantity)

	if args.PackageID == domain.PackageCustomID {
		amount := args.CustomAmount.Mul(quantity)
		if validErr := o.catalog.ValidateCustomAmount(args.CustomAmount); validErr != nil {
			return decimal.Zero, validErr
		}
		return amount, nil
	}

	pkg, findErr := o.catalog.FindPackage(args.PackageID)
	if findErr != nil {
		if errors.Is(findErr, domain.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrInvalidAmount
		}
		return decimal.Zero, findErr
	}
	return pkg.BaseCredits.Mul(quantity), nil
}
