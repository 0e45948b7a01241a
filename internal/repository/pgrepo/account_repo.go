package pgrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

type AccountRepository struct {
	db uow.DBTX
}

func NewAccountRepository(db uow.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, created_at, updated_at, username, password, base_credits, bonus_credits`

func (a *AccountRepository) CreateAccount(
	ctx context.Context,
	args repoargs.CreateAccount,
) (*domain.Account, error) {
	row := a.db.QueryRow(ctx, `
		INSERT INTO accounts (username, password)
		VALUES ($1, $2)
		RETURNING `+accountColumns,
		args.Username, args.Password,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "creating account `%s`", args.Username)
	}
	return account, nil
}

func (a *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := a.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "finding account by username `%s`", username)
	}
	return account, nil
}

func (a *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := a.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "finding account by id %d", id)
	}
	return account, nil
}

// GetForUpdate читает аккаунт с блокировкой строки (FOR UPDATE). Должен вызываться
// только внутри транзакции UnitOfWork: блокировка сериализует конкурентные записи
// журнала по одному аккаунту, не затрагивая остальные.
func (a *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	row := a.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "locking account %d", id)
	}
	return account, nil
}

// UpdateBalances записывает материализованные корзины баланса. Вызывается в той же
// транзакции, что и вставка записи журнала.
func (a *AccountRepository) UpdateBalances(
	ctx context.Context,
	id int64,
	baseCredits, bonusCredits decimal.Decimal,
) error {
	tag, err := a.db.Exec(ctx, `
		UPDATE accounts SET base_credits = $2, bonus_credits = $3, updated_at = now()
		WHERE id = $1`,
		id, baseCredits, bonusCredits,
	)
	if err != nil {
		return convertErr(err, "updating balances for account %d", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(errNoRowsAffected, "updating balances for account %d", id)
	}
	return nil
}

// GetRecentlyActive возвращает ID аккаунтов, у которых были usage-транзакции после
// момента since. Используется фоновым обработчиком оповещений.
func (a *AccountRepository) GetRecentlyActive(ctx context.Context, since time.Time, limit uint) ([]int64, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := a.db.Query(ctx, `
		SELECT DISTINCT account_id FROM transactions
		WHERE type = $1 AND created_at >= $2
		LIMIT $3`,
		domain.TransactionUsage, since, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting recently active accounts")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, convertErr(scanErr, "scanning active account id")
		}
		ids = append(ids, id)
	}
	return ids, convertErr(rows.Err(), "getting recently active accounts")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.Username,
		&account.Password,
		&account.BaseCredits,
		&account.BonusCredits,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
