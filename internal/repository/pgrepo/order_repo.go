package pgrepo

import (
	"context"
	"errors"
	"time"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, created_at, updated_at, completed_at, account_id, package_id,
	requested_amount, credited_base, credited_bonus, status, provider_order_id`

func (o *OrderRepository) CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		INSERT INTO orders (account_id, package_id, requested_amount, credited_base, credited_bonus, status, provider_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderColumns,
		args.AccountID, args.PackageID, args.RequestedAmount, args.CreditedBase, args.CreditedBonus,
		domain.OrderStatusPending, args.ProviderOrderID,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order for account %d", args.AccountID)
	}
	return order, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by id %d", id)
	}
	return order, nil
}

func (o *OrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE provider_order_id = $1`, providerOrderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by provider id `%s`", providerOrderID)
	}
	return order, nil
}

// GetByAccountID возвращает заказы аккаунта, отсортированные по дате создания по убыванию.
func (o *OrderRepository) GetByAccountID(ctx context.Context, accountID int64, limit uint) ([]domain.Order, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := o.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		accountID, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting orders for account %d", accountID)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning order")
		}
		orders = append(orders, *order)
	}
	return orders, convertErr(rows.Err(), "getting orders for account %d", accountID)
}

// MarkCompleted переводит заказ PENDING -> COMPLETED. Условие status = PENDING в SQL
// делает конечный статус финальным: гонка за перевод разрешается ровно одному
// вызывающему, остальным возвращается domain.ErrOrderFinalized.
func (o *OrderRepository) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, completed_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		id, domain.OrderStatusCompleted, completedAt, domain.OrderStatusPending,
	)
	order, err := scanOrder(row)
	if err != nil {
		converted := convertErr(err, "completing order %d", id)
		return nil, orderTransitionErr(converted)
	}
	return order, nil
}

// MarkFailed переводит заказ PENDING -> FAILED. Журнал не затрагивается.
func (o *OrderRepository) MarkFailed(ctx context.Context, id int64) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		id, domain.OrderStatusFailed, domain.OrderStatusPending,
	)
	order, err := scanOrder(row)
	if err != nil {
		converted := convertErr(err, "failing order %d", id)
		return nil, orderTransitionErr(converted)
	}
	return order, nil
}

// orderTransitionErr для переходов статуса отсутствие строки означает либо незнакомый
// заказ, либо заказ уже в конечном статусе. Различить без второго запроса нельзя,
// поэтому возвращается ErrOrderFinalized, а вызывающий при необходимости перечитывает
// заказ по ID. Остальные ошибки проходят без изменений.
func orderTransitionErr(err error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.ErrOrderFinalized
	}
	return err
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
		&order.AccountID,
		&order.PackageID,
		&order.RequestedAmount,
		&order.CreditedBase,
		&order.CreditedBonus,
		&order.Status,
		&order.ProviderOrderID,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
