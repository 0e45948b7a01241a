package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
)

// CostFunc вычисляет стоимость по фактическому объему потребленных единиц.
type CostFunc func(units decimal.Decimal) decimal.Decimal

// PerUnitCost возвращает CostFunc с фиксированной ставкой за единицу.
func PerUnitCost(rate decimal.Decimal) CostFunc {
	return func(units decimal.Decimal) decimal.Decimal {
		return units.Mul(rate)
	}
}

// LedgerServicer часть API журнала, нужная счетчику потребления.
type LedgerServicer interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.Balance, error)
	ApplyTransaction(ctx context.Context, args repoargs.ApplyTransaction) (*domain.Transaction, error)
}

type UsageServiceArgs struct {
	Ledger LedgerServicer
	// CostFn функция стоимости по умолчанию для ChargeUsage.
	CostFn CostFunc
	// AllowOverdraft разрешает пост-фактум списанию увести баланс в минус: услуга уже
	// оказана и отменена быть не может. По умолчанию выключено - списание, превышающее
	// остаток, отклоняется.
	AllowOverdraft bool
}

// UsageService считает стоимость потребления и проводит списания через журнал.
type UsageService struct {
	ledger         LedgerServicer
	costFn         CostFunc
	allowOverdraft bool
}

func NewUsageService(args UsageServiceArgs) *UsageService {
	return &UsageService{
		ledger:         args.Ledger,
		costFn:         args.CostFn,
		allowOverdraft: args.AllowOverdraft,
	}
}

// CanConsume предварительная проверка: покроет ли текущий баланс ожидаемую стоимость.
// Средства не резервируются - фактическая стоимость известна только после вызова
// сервиса, поэтому проверка исключительно рекомендательная.
func (u *UsageService) CanConsume(ctx context.Context, accountID int64, estimatedCost decimal.Decimal) (bool, error) {
	balance, err := u.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	if !balance.TotalCredits.IsPositive() {
		return false, nil
	}
	return balance.TotalCredits.GreaterThanOrEqual(estimatedCost), nil
}

// ChargeUsage списывает стоимость фактически потребленных единиц. requestID служит
// идемпотентным ключом: повтор с тем же requestID вернет первоначальную транзакцию
// без второго списания.
func (u *UsageService) ChargeUsage(
	ctx context.Context,
	accountID int64,
	actualUnits decimal.Decimal,
	requestID string,
) (*domain.Transaction, error) {
	return u.ChargeUsageWithCost(ctx, accountID, actualUnits, u.costFn, requestID)
}

// ChargeUsageWithCost как ChargeUsage, но с явной функцией стоимости.
func (u *UsageService) ChargeUsageWithCost(
	ctx context.Context,
	accountID int64,
	actualUnits decimal.Decimal,
	costFn CostFunc,
	requestID string,
) (*domain.Transaction, error) {
	cost := costFn(actualUnits)
	if cost.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	transaction, err := u.ledger.ApplyTransaction(ctx, repoargs.ApplyTransaction{
		AccountID:      accountID,
		Type:           domain.TransactionUsage,
		Amount:         cost.Neg(),
		IdempotencyKey: requestID,
		Description:    fmt.Sprintf("usage charge for %s units", actualUnits.String()),
		AllowNegative:  u.allowOverdraft,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transaction, nil
}
