package pgrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, created_at, account_id, order_id, type, amount,
	balance_after, idempotency_key, description`

// Create вставляет запись журнала. Уникальный индекс (account_id, idempotency_key)
// превращает повтор идемпотентного ключа в domain.ErrDuplicateKey.
func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.ApplyTransaction,
	balanceAfter decimal.Decimal,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		INSERT INTO transactions (account_id, order_id, type, amount, balance_after, idempotency_key, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		args.AccountID, args.OrderID, args.Type, args.Amount, balanceAfter, args.IdempotencyKey, args.Description,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction with key `%s`", args.IdempotencyKey)
	}
	return transaction, nil
}

// FindByIdempotencyKey возвращает ранее записанную транзакцию по паре
// (account_id, idempotency_key) или domain.ErrRecordNotFound.
func (t *TransactionRepository) FindByIdempotencyKey(
	ctx context.Context,
	accountID int64,
	key string,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction by key `%s`", key)
	}
	return transaction, nil
}

// GetByAccountID возвращает транзакции аккаунта, отсортированные по дате создания
// по убыванию.
func (t *TransactionRepository) GetByAccountID(
	ctx context.Context,
	accountID int64,
	limit uint,
) ([]domain.Transaction, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := t.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		accountID, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting transactions for account %d", accountID)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		transaction, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction")
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, convertErr(rows.Err(), "getting transactions for account %d", accountID)
}

// SumUsageSince возвращает суммарный объем usage-списаний аккаунта начиная с момента
// since (абсолютное значение). Используется для оценки скорости расхода.
func (t *TransactionRepository) SumUsageSince(
	ctx context.Context,
	accountID int64,
	since time.Time,
) (decimal.Decimal, error) {
	row := t.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(-amount), 0) FROM transactions
		WHERE account_id = $1 AND type = $2 AND created_at >= $3`,
		accountID, domain.TransactionUsage, since,
	)
	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, convertErr(err, "summing usage for account %d", accountID)
	}
	return sum, nil
}

// SumByAccountID возвращает сумму всех транзакций аккаунта. Инвариант журнала:
// эта сумма совпадает с материализованным балансом аккаунта.
func (t *TransactionRepository) SumByAccountID(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	row := t.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1`,
		accountID,
	)
	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, convertErr(err, "summing transactions for account %d", accountID)
	}
	return sum, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := row.Scan(
		&transaction.ID,
		&transaction.CreatedAt,
		&transaction.AccountID,
		&transaction.OrderID,
		&transaction.Type,
		&transaction.Amount,
		&transaction.BalanceAfter,
		&transaction.IdempotencyKey,
		&transaction.Description,
	)
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}
